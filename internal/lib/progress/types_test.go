package progress_test

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dpup/info.ersn.net/navigator/internal/lib/progress"
	"github.com/dpup/info.ersn.net/navigator/internal/lib/route/routetest"
)

func TestNew(t *testing.T) {
	r := routetest.ThreeStep()
	state := progress.New(r)

	assert.Equal(t, 0, state.LegIndex)
	assert.Equal(t, 0, state.StepIndex)
	assert.Equal(t, progress.AlertNone, state.AlertLevel)
	assert.Equal(t, routetest.Origin, state.SnappedPosition)
	assert.Equal(t, 200.0, state.DistanceRemainingOnStep)

	require.NotNil(t, state.CurrentLeg())
	require.NotNil(t, state.CurrentStep())
	require.NotNil(t, state.UpcomingStep())
	assert.Equal(t, 10.0, state.UpcomingStep().Maneuver.BearingAfter)
	assert.InDelta(t, 0, state.DistanceTraveledOnRoute(), 0.5)
	assert.InDelta(t, 0, state.FractionTraveledOnRoute(), 0.01)
}

func TestState_Distances(t *testing.T) {
	r := routetest.ThreeStep()
	state := progress.State{Route: r, LegIndex: 0, StepIndex: 1, DistanceRemainingOnStep: 150}

	assert.InDelta(t, 150, state.DistanceTraveledOnStep(), 1)
	assert.InDelta(t, 350, state.DistanceTraveledOnRoute(), 1)
	assert.InDelta(t, 150, state.DistanceRemainingOnRoute(), 1)
	assert.InDelta(t, 0.7, state.FractionTraveledOnRoute(), 0.01)

	final := progress.State{Route: r, LegIndex: 0, StepIndex: 2}
	assert.Nil(t, final.UpcomingStep())
	assert.InDelta(t, 1, final.FractionTraveledOnRoute(), 0.01)
}

func TestState_Empty(t *testing.T) {
	var state progress.State

	assert.Nil(t, state.CurrentLeg())
	assert.Nil(t, state.CurrentStep())
	assert.Nil(t, state.UpcomingStep())
	assert.Zero(t, state.DistanceTraveledOnRoute())
	assert.Zero(t, state.DistanceRemainingOnRoute())
	assert.Zero(t, state.FractionTraveledOnRoute())

	empty := progress.New(nil)
	assert.Equal(t, progress.AlertNone, empty.AlertLevel)
}

func TestAlertLevel_String(t *testing.T) {
	assert.Equal(t, "none", progress.AlertNone.String())
	assert.Equal(t, "depart", progress.AlertDepart.String())
	assert.Equal(t, "high", progress.AlertHigh.String())
	assert.Equal(t, "arrive", progress.AlertArrive.String())
	assert.Equal(t, "unknown", progress.AlertLevel(42).String())

	out, err := json.Marshal(map[string]progress.AlertLevel{"level": progress.AlertMedium})
	require.NoError(t, err)
	assert.JSONEq(t, `{"level":"medium"}`, string(out))
}
