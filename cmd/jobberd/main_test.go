package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	jobber "github.com/netresearch/ofelia"
)

func TestWorkerRouteName_Found(t *testing.T) {
	name, ok := workerRouteName([]string{"daemon", "-jobber-worker", "heartbeat"})
	require.True(t, ok)
	assert.Equal(t, "heartbeat", name)
}

func TestWorkerRouteName_NotPresent(t *testing.T) {
	_, ok := workerRouteName([]string{"daemon", "-log-level", "debug"})
	assert.False(t, ok)
}

func TestWorkerRouteName_TrailingFlagWithoutValue(t *testing.T) {
	_, ok := workerRouteName([]string{"-jobber-worker"})
	assert.False(t, ok)
}

func TestRegisterDemoRoutes_DefaultsAndOverrides(t *testing.T) {
	app := jobber.New()
	require.NoError(t, registerDemoRoutes(app, map[string]string{"heartbeat": "@every 5m", "cleanup": "@every 1h"}))

	_, ok := app.Route("heartbeat")
	require.True(t, ok)
	_, ok = app.Route("cleanup")
	require.True(t, ok)
}

func TestRegisterDemoRoutes_NilSchedulesUsesDefault(t *testing.T) {
	app := jobber.New()
	require.NoError(t, registerDemoRoutes(app, nil))

	route, ok := app.Route("heartbeat")
	require.True(t, ok)
	assert.Equal(t, "heartbeat", route.Name())
}

func TestRegisterDemoRoutes_RegisteringTwiceReusesSameRoute(t *testing.T) {
	app := jobber.New()
	require.NoError(t, registerDemoRoutes(app, nil))
	require.NoError(t, registerDemoRoutes(app, nil))

	route, ok := app.Route("heartbeat")
	require.True(t, ok)
	assert.Equal(t, "heartbeat", route.Name())
}

func TestBuildLogger_UnknownLevelDefaultsToInfo(t *testing.T) {
	_, levelVar := buildLogger("bogus")
	assert.Equal(t, "INFO", levelVar.Level().String())
}

func TestBuildLogger_DebugLevel(t *testing.T) {
	_, levelVar := buildLogger("debug")
	assert.Equal(t, "DEBUG", levelVar.Level().String())
}
