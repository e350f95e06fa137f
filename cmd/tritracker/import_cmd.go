package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/Ali-Herrera/tri-tracker/internal/app"
	"github.com/Ali-Herrera/tri-tracker/internal/config"
	"github.com/Ali-Herrera/tri-tracker/internal/importer"
	"github.com/Ali-Herrera/tri-tracker/internal/service"
)

const (
	exitFailure = 1
	exitUsage   = 2
	exitPartial = 3
)

type codedError struct {
	code int
	err  error
}

func (e *codedError) Error() string { return e.err.Error() }
func (e *codedError) Unwrap() error { return e.err }

func withCode(code int, err error) error {
	return &codedError{code: code, err: err}
}

func exitCode(err error) int {
	var ce *codedError
	if errors.As(err, &ce) {
		return ce.code
	}
	var partial *importer.PartialCommitError
	if errors.As(err, &partial) {
		return exitPartial
	}
	return exitFailure
}

type importOptions struct {
	userID       string
	file         string
	objectKey    string
	mappingJSON  string
	intensity    int
	apply        bool
	force        bool
	deleteSource bool
}

func newImportCmd(configDir *string) *cobra.Command {
	var opts importOptions

	cmd := &cobra.Command{
		Use:   "import",
		Short: "Import workouts from a CSV export (dry-run unless --apply)",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runImport(cmd.Context(), cmd.OutOrStdout(), *configDir, opts)
		},
	}
	addSourceFlags(cmd, &opts)
	cmd.Flags().BoolVar(&opts.apply, "apply", false, "Store the workouts (default is a preview)")
	cmd.Flags().BoolVar(&opts.force, "force", false, "Import even if the same batch was imported before")
	cmd.Flags().BoolVar(&opts.deleteSource, "delete-source", false, "Delete the object after a complete import")
	return cmd
}

func newPreviewCmd(configDir *string) *cobra.Command {
	var opts importOptions

	cmd := &cobra.Command{
		Use:   "preview",
		Short: "Show how a CSV export would be imported",
		RunE: func(cmd *cobra.Command, args []string) error {
			opts.apply = false
			return runImport(cmd.Context(), cmd.OutOrStdout(), *configDir, opts)
		},
	}
	addSourceFlags(cmd, &opts)
	return cmd
}

func addSourceFlags(cmd *cobra.Command, opts *importOptions) {
	cmd.Flags().StringVar(&opts.userID, "user", "", "Owner of the imported workouts (required)")
	cmd.Flags().StringVar(&opts.file, "file", "", "Local CSV file, or - for stdin")
	cmd.Flags().StringVar(&opts.objectKey, "s3-key", "", "Object key of the CSV export in the configured bucket")
	cmd.Flags().StringVar(&opts.mappingJSON, "mapping", "", "Column mapping as JSON (default: inferred from the file)")
	cmd.Flags().IntVar(&opts.intensity, "intensity", service.DefaultImportIntensity, "RPE given to every imported workout")

	_ = cmd.MarkFlagRequired("user")
	cmd.MarkFlagsMutuallyExclusive("file", "s3-key")
	cmd.MarkFlagsOneRequired("file", "s3-key")
}

func buildImportRequest(opts importOptions, stdin io.Reader) (service.ImportRequest, error) {
	req := service.ImportRequest{
		ObjectKey:    strings.TrimSpace(opts.objectKey),
		Intensity:    opts.intensity,
		Force:        opts.force,
		DeleteSource: opts.deleteSource,
	}
	if opts.file != "" {
		var data []byte
		var err error
		if opts.file == "-" {
			data, err = io.ReadAll(stdin)
		} else {
			data, err = os.ReadFile(opts.file)
		}
		if err != nil {
			return req, withCode(exitUsage, fmt.Errorf("read --file: %w", err))
		}
		req.CSV = string(data)
	}
	if opts.mappingJSON != "" {
		m := importer.DefaultMapping()
		if err := json.Unmarshal([]byte(opts.mappingJSON), &m); err != nil {
			return req, withCode(exitUsage, fmt.Errorf("invalid --mapping: %w", err))
		}
		req.Mapping = &m
	}
	return req, nil
}

func runImport(ctx context.Context, out io.Writer, configDir string, opts importOptions) error {
	req, err := buildImportRequest(opts, os.Stdin)
	if err != nil {
		return err
	}

	cfg, err := config.LoadConfig(configDir)
	if err != nil {
		return withCode(exitUsage, fmt.Errorf("load config: %w", err))
	}
	application, err := app.New(cfg)
	if err != nil {
		return err
	}
	defer application.Close()

	imports := application.Services.Imports
	if !opts.apply {
		p, err := imports.Preview(ctx, opts.userID, req)
		if err != nil {
			return err
		}
		return printJSON(out, p)
	}

	job, err := imports.Commit(ctx, opts.userID, req)
	if job != nil {
		if perr := printJSON(out, job); perr != nil {
			return perr
		}
	}
	return err
}

func newJobCmd(configDir *string) *cobra.Command {
	var userID string

	cmd := &cobra.Command{
		Use:   "job <id>",
		Short: "Show the status of an import job",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.LoadConfig(*configDir)
			if err != nil {
				return withCode(exitUsage, fmt.Errorf("load config: %w", err))
			}
			application, err := app.New(cfg)
			if err != nil {
				return err
			}
			defer application.Close()

			job, err := application.Services.Imports.GetJob(cmd.Context(), userID, args[0])
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), job)
		},
	}
	cmd.Flags().StringVar(&userID, "user", "", "Owner of the import job (required)")
	_ = cmd.MarkFlagRequired("user")
	return cmd
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
