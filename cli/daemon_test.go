package cli

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/netresearch/ofelia/config"
)

func TestApplyFileConfig_FlagsWinOverFile(t *testing.T) {
	c := &DaemonCommand{LogLevel: "debug", DBPath: "/var/lib/jobberd/schedules.db"}
	c.applyFileConfig(&config.AppConfig{LogLevel: "error", DBPath: "/custom/path.db"})

	assert.Equal(t, "debug", c.LogLevel)
	assert.Equal(t, "/custom/path.db", c.DBPath, "DBPath was still at its default sentinel, so the file wins")
}

func TestApplyFileConfig_FileFillsAbsentFlags(t *testing.T) {
	c := &DaemonCommand{PprofAddr: "127.0.0.1:8080", MetricsAddr: "127.0.0.1:9090"}
	c.applyFileConfig(&config.AppConfig{
		LogLevel:     "warn",
		WorkerBinary: "/usr/local/bin/worker",
		RoutesFile:   "/etc/jobberd/routes.yaml",
		EnablePprof:  true,
		PprofAddr:    "0.0.0.0:6060",
	})

	assert.Equal(t, "warn", c.LogLevel)
	assert.Equal(t, "/usr/local/bin/worker", c.WorkerBinary)
	assert.Equal(t, "/etc/jobberd/routes.yaml", c.RoutesFile)
	assert.True(t, c.EnablePprof)
	assert.Equal(t, "0.0.0.0:6060", c.PprofAddr)
	assert.Equal(t, "127.0.0.1:9090", c.MetricsAddr)
}

func TestApplyFileConfig_EmptyFileLeavesFlagsUntouched(t *testing.T) {
	c := &DaemonCommand{LogLevel: "info", Durable: true}
	c.applyFileConfig(&config.AppConfig{})

	assert.Equal(t, "info", c.LogLevel)
	assert.True(t, c.Durable)
}

func TestApplyFileConfig_LogFormatDefaultIsOverridable(t *testing.T) {
	c := &DaemonCommand{LogFormat: "text"}
	c.applyFileConfig(&config.AppConfig{LogFormat: "zerolog"})
	assert.Equal(t, "zerolog", c.LogFormat)
}

func TestApplyFileConfig_ExplicitNonDefaultLogFormatWins(t *testing.T) {
	c := &DaemonCommand{LogFormat: "json"}
	c.applyFileConfig(&config.AppConfig{LogFormat: "zerolog"})
	assert.Equal(t, "json", c.LogFormat)
}

func TestApplyFileConfig_SaveFolderFileFillsAbsentFlag(t *testing.T) {
	c := &DaemonCommand{}
	c.applyFileConfig(&config.AppConfig{SaveFolder: "/var/lib/jobberd/summaries"})
	assert.Equal(t, "/var/lib/jobberd/summaries", c.SaveFolder)
}

func TestApplyFileConfig_SaveFolderFlagWinsOverFile(t *testing.T) {
	c := &DaemonCommand{SaveFolder: "/flag/path"}
	c.applyFileConfig(&config.AppConfig{SaveFolder: "/file/path"})
	assert.Equal(t, "/flag/path", c.SaveFolder)
}
