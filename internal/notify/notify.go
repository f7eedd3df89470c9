// Package notify is the notification sink: fire-and-forget desktop
// notifications with no delivery confirmation.
package notify

import (
	"github.com/gen2brain/beeep"
)

// Desktop sends transient system notifications via the platform's
// native mechanism (D-Bus, Notification Center, toast).
type Desktop struct{}

// NewDesktop returns the desktop notification sink.
func NewDesktop() *Desktop {
	return &Desktop{}
}

// Notify displays a transient notification. Whether anything is shown
// depends on the platform; there is no delivery confirmation.
func (d *Desktop) Notify(title, body string) error {
	return beeep.Notify(title, body, "")
}
