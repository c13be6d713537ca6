// Package email delivers transactional mail (signup OTPs, welcome notes).
// Delivery is best-effort everywhere in this codebase: callers log failures
// and carry on.
package email

import "context"

// Sender delivers a single plain-text message.
type Sender interface {
	Send(ctx context.Context, to, subject, body string) error
}
