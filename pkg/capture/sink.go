package capture

import (
	"github.com/sirupsen/logrus"

	"github.com/grovetools/devsync/logging"
	"github.com/grovetools/devsync/pkg/models"
)

// Sink receives change events. Send returns false when the event was
// dropped; *channel.Client implements it.
type Sink interface {
	Send(ev models.ChangeEvent) bool
}

// SinkFunc adapts a function to Sink.
type SinkFunc func(models.ChangeEvent) bool

// Send calls f.
func (f SinkFunc) Send(ev models.ChangeEvent) bool { return f(ev) }

// emitter sends events and logs drops. A dropped event never undoes the
// visual change already applied to the document.
type emitter struct {
	sink   Sink
	logger *logrus.Entry
}

func (e emitter) emit(ev models.ChangeEvent) bool {
	if e.sink == nil {
		return false
	}
	if e.sink.Send(ev) {
		e.logger.WithFields(logrus.Fields{"kind": ev.Kind, "selector": ev.Selector}).Debug("Change sent")
		return true
	}
	e.logger.WithFields(logrus.Fields{"kind": ev.Kind, "selector": ev.Selector}).
		Info("Change not sent: patch server unavailable")
	return false
}

func loggerOr(l *logrus.Entry) *logrus.Entry {
	if l == nil {
		return logging.NewLogger("capture")
	}
	return l
}
