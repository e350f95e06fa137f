package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/Ali-Herrera/tri-tracker/internal/importer"
)

func TestBuildImportRequest(t *testing.T) {
	path := filepath.Join(t.TempDir(), "runs.csv")
	require.NoError(t, os.WriteFile(path, []byte("Date,Type,Time\n2024-01-05,Run,30\n"), 0o600))

	req, err := buildImportRequest(importOptions{
		file:        path,
		intensity:   6,
		mappingJSON: `{"dateColumn":"Date","sportColumn":"Type","durationColumn":"Time"}`,
		force:       true,
	}, nil)
	require.NoError(t, err)
	require.Contains(t, req.CSV, "2024-01-05")
	require.Equal(t, 6, req.Intensity)
	require.True(t, req.Force)
	require.NotNil(t, req.Mapping)
	require.Equal(t, "Time", req.Mapping.DurationColumn)
	// Units the JSON leaves out keep their defaults.
	require.Equal(t, importer.DefaultMapping().DistanceUnit, req.Mapping.DistanceUnit)

	req, err = buildImportRequest(importOptions{file: "-"}, strings.NewReader("a,b\n"))
	require.NoError(t, err)
	require.Equal(t, "a,b\n", req.CSV)

	_, err = buildImportRequest(importOptions{file: path, mappingJSON: "{"}, nil)
	require.Equal(t, exitUsage, exitCode(err))

	_, err = buildImportRequest(importOptions{file: filepath.Join(t.TempDir(), "missing.csv")}, nil)
	require.Equal(t, exitUsage, exitCode(err))
}

func TestExitCode(t *testing.T) {
	require.Equal(t, exitFailure, exitCode(errors.New("boom")))
	partial := &importer.PartialCommitError{Committed: 1, Chunks: 2, FailedChunk: 1, Err: errors.New("write rejected")}
	require.Equal(t, exitPartial, exitCode(fmt.Errorf("import: %w", partial)))
	require.Equal(t, exitUsage, exitCode(withCode(exitUsage, errors.New("bad flag"))))
}

func TestImportCommandRequiresSource(t *testing.T) {
	root := newRootCmd()
	root.SetArgs([]string{"import", "--user", "u1"})
	root.SetOut(new(strings.Builder))
	root.SetErr(new(strings.Builder))
	require.Error(t, root.Execute())
}

func TestPreviewCommandAgainstMemoryStore(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte("database:\n  driver: memory\n"), 0o600))
	csvPath := filepath.Join(dir, "runs.csv")
	require.NoError(t, os.WriteFile(csvPath, []byte("Date,Type,Time,Distance\n2024-01-05,Run,30,3.1\n"), 0o600))

	var out strings.Builder
	root := newRootCmd()
	root.SetArgs([]string{"preview", "--config", dir, "--user", "u1", "--file", csvPath})
	root.SetOut(&out)
	require.NoError(t, root.Execute())
	require.Contains(t, out.String(), `"accepted": 1`)
}
