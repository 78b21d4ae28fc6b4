package core

import (
	"bytes"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"

	"github.com/netresearch/ofelia/test"
)

func TestSlogLogger_DefaultsToSlogDefaultWhenNil(t *testing.T) {
	l := NewSlogLogger(nil)
	assert.NotNil(t, l)
}

func TestSlogLogger_LevelsRouteToExpectedCalls(t *testing.T) {
	slogLogger, handler := test.NewTestLoggerWithHandler()
	l := NewSlogLogger(slogLogger)

	l.Debugf("debug %d", 1)
	l.Noticef("notice %d", 2)
	l.Warningf("warning %d", 3)
	l.Errorf("error %d", 4)

	assert.True(t, handler.HasMessage("debug 1"))
	assert.True(t, handler.HasMessage("notice 2"))
	assert.True(t, handler.HasWarning("warning 3"))
	assert.True(t, handler.HasError("error 4"))
}

func TestSlogLogger_FormatsWithoutArgsUnchanged(t *testing.T) {
	slogLogger, handler := test.NewTestLoggerWithHandler()
	l := NewSlogLogger(slogLogger)

	l.Errorf("plain message")
	assert.True(t, handler.HasError("plain message"))
}

func TestLogrusAdapter_LevelsWriteToOutput(t *testing.T) {
	var buf bytes.Buffer
	base := logrus.New()
	base.SetOutput(&buf)
	base.SetLevel(logrus.DebugLevel)
	adapter := &LogrusAdapter{Logger: base}

	adapter.Debugf("debug %d", 1)
	adapter.Warningf("warning %d", 2)
	adapter.Errorf("error %d", 3)

	out := buf.String()
	assert.Contains(t, out, "debug 1")
	assert.Contains(t, out, "warning 2")
	assert.Contains(t, out, "error 3")
}
