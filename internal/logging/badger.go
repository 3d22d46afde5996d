package logging

import (
	"fmt"
	"strings"

	"github.com/rs/zerolog"
)

// BadgerLogger routes badger's printf-style logging into zerolog. Badger's
// info chatter is demoted to debug and its debug output to trace.
type BadgerLogger struct {
	log zerolog.Logger
}

// NewBadgerLogger wraps l for use as badger.Options.Logger.
func NewBadgerLogger(l zerolog.Logger) *BadgerLogger {
	return &BadgerLogger{log: l}
}

func (b *BadgerLogger) Errorf(format string, args ...any) {
	b.log.Error().Msg(trimMsg(format, args))
}

func (b *BadgerLogger) Warningf(format string, args ...any) {
	b.log.Warn().Msg(trimMsg(format, args))
}

func (b *BadgerLogger) Infof(format string, args ...any) {
	b.log.Debug().Msg(trimMsg(format, args))
}

func (b *BadgerLogger) Debugf(format string, args ...any) {
	b.log.Trace().Msg(trimMsg(format, args))
}

func trimMsg(format string, args []any) string {
	return strings.TrimRight(fmt.Sprintf(format, args...), "\n")
}
