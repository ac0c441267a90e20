package events

import (
	"github.com/charmbracelet/log"
	"github.com/desertthunder/loopauth/internal/shared"
	"github.com/gen2brain/beeep"
)

// LogSink logs each payload it receives, redacting URLs.
func LogSink(logger *log.Logger, event string) Handler {
	return func(payload string) error {
		logger.Info("event published", "event", event, "url", shared.RedactURL(payload))
		return nil
	}
}

// notify is swapped in tests to avoid real desktop notifications.
var notify = func(title, message, icon string) error {
	return beeep.Notify(title, message, icon)
}

// Notifier shows a desktop notification when an event arrives.
type Notifier struct {
	Title   string
	Message string
	Icon    string
}

// NewNotifier creates a [Notifier] telling the user that appName finished signing in.
func NewNotifier(title, appName string) *Notifier {
	if title == "" {
		title = "Signed in"
	}
	return &Notifier{
		Title:   title,
		Message: "Authorization received. You can return to " + appName + ".",
	}
}

// Handle is a [Handler] that sends the notification. The payload is never shown, since it carries the
// authorization code.
func (n *Notifier) Handle(string) error {
	return notify(n.Title, n.Message, n.Icon)
}
