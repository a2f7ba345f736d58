// Package email delivers verification codes to users.  The Sender interface
// keeps handlers independent of the provider; production uses the Resend
// HTTP API and DEBUG_EMAIL swaps in a simulated sender for local work.
package email

import (
	"context"
	"log"
)

// Sender sends a verification code to a recipient.
type Sender interface {
	SendVerificationCode(ctx context.Context, to, username, code string) error
}

// NoopSender simulates delivery and logs the code instead of sending it.
type NoopSender struct{}

func (NoopSender) SendVerificationCode(_ context.Context, to, _ string, code string) error {
	log.Printf("email: debug mode, simulating send to %s (code %s)", to, code)
	return nil
}
