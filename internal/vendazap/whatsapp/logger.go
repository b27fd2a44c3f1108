package whatsapp

import (
	"fmt"
	"log/slog"

	waLog "go.mau.fi/whatsmeow/util/log"
)

// slogAdapter bridges whatsmeow's internal logger onto the process-wide
// slog output so transport logs share one format with everything else.
type slogAdapter struct {
	log *slog.Logger
}

func newLogAdapter(module string) waLog.Logger {
	return slogAdapter{log: slog.With("module", module)}
}

func (l slogAdapter) Errorf(msg string, args ...any) { l.log.Error(fmt.Sprintf(msg, args...)) }
func (l slogAdapter) Warnf(msg string, args ...any)  { l.log.Warn(fmt.Sprintf(msg, args...)) }
func (l slogAdapter) Infof(msg string, args ...any)  { l.log.Info(fmt.Sprintf(msg, args...)) }
func (l slogAdapter) Debugf(msg string, args ...any) { l.log.Debug(fmt.Sprintf(msg, args...)) }

func (l slogAdapter) Sub(module string) waLog.Logger {
	return slogAdapter{log: l.log.With("module", module)}
}
