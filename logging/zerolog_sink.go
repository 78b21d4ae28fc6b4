package logging

import (
	"fmt"
	"os"

	"github.com/rs/zerolog"

	"github.com/netresearch/ofelia/core"
)

// ZerologSink adapts a zerolog.Logger to core.Logger, an alternate
// daemon logging backend selected by -log-format=zerolog. Unlike
// SlogLogger it emits structured JSON to stdout by default, useful
// when jobberd's output feeds a log collector rather than a terminal.
type ZerologSink struct {
	l zerolog.Logger
}

// NewZerologSink builds a ZerologSink writing JSON lines to w. A nil w
// defaults to os.Stdout.
func NewZerologSink(w *os.File) *ZerologSink {
	if w == nil {
		w = os.Stdout
	}
	return &ZerologSink{l: zerolog.New(w).With().Timestamp().Logger()}
}

var _ core.Logger = (*ZerologSink)(nil)

func (z *ZerologSink) Criticalf(format string, args ...any) {
	z.l.WithLevel(zerolog.FatalLevel).Msg(sprintf(format, args...))
}

func (z *ZerologSink) Debugf(format string, args ...any) {
	z.l.Debug().Msg(sprintf(format, args...))
}

func (z *ZerologSink) Errorf(format string, args ...any) {
	z.l.Error().Msg(sprintf(format, args...))
}

func (z *ZerologSink) Noticef(format string, args ...any) {
	z.l.Info().Msg(sprintf(format, args...))
}

func (z *ZerologSink) Warningf(format string, args ...any) {
	z.l.Warn().Msg(sprintf(format, args...))
}

func sprintf(format string, args ...any) string {
	if len(args) == 0 {
		return format
	}
	return fmt.Sprintf(format, args...)
}
