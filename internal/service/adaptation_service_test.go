package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/Ali-Herrera/tri-tracker/internal/domain"
	"github.com/Ali-Herrera/tri-tracker/internal/repository/memory"
)

func TestAdaptationLogComputesEF(t *testing.T) {
	ctx := context.Background()
	svc := NewAdaptationService(memory.New())
	day := time.Date(2024, 2, 1, 12, 0, 0, 0, time.UTC)

	bike, err := svc.Log(ctx, user, day, domain.AdaptationInput{
		Discipline: domain.DisciplineBike, Type: "Steady State (Post-Intervals)", AvgHR: 140, AvgPower: floatp(200),
	})
	require.NoError(t, err)
	require.Equal(t, 1.4286, bike.EF)

	run, err := svc.Log(ctx, user, day.AddDate(0, 0, 1), domain.AdaptationInput{
		Discipline: domain.DisciplineRun, Type: "Aerobic Base Build", AvgHR: 150, PaceMin: floatp(8), PaceSec: floatp(0),
	})
	require.NoError(t, err)
	require.Equal(t, 0.8333, run.EF)

	noHR, err := svc.Log(ctx, user, day.AddDate(0, 0, 2), domain.AdaptationInput{
		Discipline: domain.DisciplineSwim, Type: "Sprints", SwimSpeed: floatp(1.2),
	})
	require.NoError(t, err)
	require.Zero(t, noHR.EF)

	_, err = svc.Log(ctx, user, day, domain.AdaptationInput{Discipline: "Row", Type: "Other"})
	require.ErrorIs(t, err, ErrValidationFailed)

	list, err := svc.List(ctx, user)
	require.NoError(t, err)
	require.Len(t, list, 3)
	require.Equal(t, bike.ID, list[0].ID)

	require.NoError(t, svc.Delete(ctx, user, noHR.ID))
	require.ErrorIs(t, svc.Delete(ctx, user, noHR.ID), ErrAdaptationNotFound)
}

func TestAdaptationSummaryFlagsFatigue(t *testing.T) {
	ctx := context.Background()
	svc := NewAdaptationService(memory.New())

	empty, err := svc.Summary(ctx, user)
	require.NoError(t, err)
	require.Zero(t, empty.Sessions)
	require.Nil(t, empty.Latest)

	day := time.Date(2024, 2, 1, 12, 0, 0, 0, time.UTC)
	for i, power := range []float64{150, 150, 120} {
		_, err := svc.Log(ctx, user, day.AddDate(0, 0, i), domain.AdaptationInput{
			Discipline: domain.DisciplineBike, Type: domain.RecoveryCategory, AvgHR: 120, Drift: 9, AvgPower: floatp(power),
		})
		require.NoError(t, err)
	}

	sum, err := svc.Summary(ctx, user)
	require.NoError(t, err)
	require.Equal(t, 3, sum.Sessions)
	require.Equal(t, domain.StatusHighFatigue, sum.Status)
	require.Equal(t, domain.SignalCaution, sum.Recommendation.Signal)
	require.True(t, sum.FatigueAlert)
	require.Less(t, sum.FatigueDrop, -0.05)
}
