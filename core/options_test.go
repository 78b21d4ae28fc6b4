package core

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRunMode_String(t *testing.T) {
	cases := map[RunMode]string{
		RunModeAuto:    "auto",
		RunModeAsync:   "async",
		RunModeThread:  "thread",
		RunModeProcess: "process",
		RunMode(99):    "auto",
	}
	for mode, want := range cases {
		assert.Equal(t, want, mode.String())
	}
}

func TestRouteOptions_WithDefaultsFillsUnsetMaxCronFailures(t *testing.T) {
	o := RouteOptions{}.WithDefaults()
	require.NotNil(t, o.MaxCronFailures)
	assert.Equal(t, 1, *o.MaxCronFailures)
}

func TestRouteOptions_WithDefaultsPreservesExplicitValue(t *testing.T) {
	o := RouteOptions{MaxCronFailures: Ptr(5)}.WithDefaults()
	require.NotNil(t, o.MaxCronFailures)
	assert.Equal(t, 5, *o.MaxCronFailures)
}

func TestRouteOptions_WithDefaultsDoesNotCoerceExplicitZero(t *testing.T) {
	o := RouteOptions{MaxCronFailures: Ptr(0)}.WithDefaults()
	require.NotNil(t, o.MaxCronFailures)
	assert.Equal(t, 0, *o.MaxCronFailures, "an explicit zero must survive WithDefaults so Validate can reject it")
}

func TestRouteOptions_ValidateRejectsNegativeMaxCronFailures(t *testing.T) {
	err := RouteOptions{MaxCronFailures: Ptr(-1)}.Validate()
	require.Error(t, err)
}

func TestRouteOptions_ValidateRejectsExplicitZeroMaxCronFailures(t *testing.T) {
	err := RouteOptions{MaxCronFailures: Ptr(0)}.Validate()
	require.Error(t, err)
}

func TestRouteOptions_ValidateAcceptsUnsetAndPositive(t *testing.T) {
	require.NoError(t, RouteOptions{}.Validate())
	require.NoError(t, RouteOptions{MaxCronFailures: Ptr(1)}.Validate())
}

func TestRouteOptions_ValidateRejectsNegativeMaxRuns(t *testing.T) {
	err := RouteOptions{MaxRuns: -1}.Validate()
	require.Error(t, err)
}

func TestRouteOptions_ValidateAcceptsZeroMaxRunsAsUnlimited(t *testing.T) {
	require.NoError(t, RouteOptions{MaxRuns: 0}.Validate())
	require.NoError(t, RouteOptions{MaxRuns: 3}.Validate())
}

func TestPtr_ReturnsPointerToValue(t *testing.T) {
	p := Ptr(42)
	require.NotNil(t, p)
	assert.Equal(t, 42, *p)
}
