// Package mail renders and delivers the credential notification.
package mail

import (
	"context"
	"errors"
	"net/textproto"
	"strings"
)

// ErrInvalidRecipient is returned for addresses no retry can fix.
var ErrInvalidRecipient = errors.New("mail: invalid recipient")

type Message struct {
	To      string
	Subject string
	HTML    string
}

// Sender delivers a single message.
type Sender interface {
	Send(ctx context.Context, msg Message) error
}

// Redirect sends every message to a fixed sandbox address instead of the
// real recipient. It is used while the sending domain is unverified. An
// empty address returns next unchanged.
func Redirect(next Sender, sandbox string) Sender {
	sandbox = strings.TrimSpace(sandbox)
	if sandbox == "" {
		return next
	}
	return &redirectSender{next: next, to: sandbox}
}

type redirectSender struct {
	next Sender
	to   string
}

func (r *redirectSender) Send(ctx context.Context, msg Message) error {
	msg.To = r.to
	return r.next.Send(ctx, msg)
}

// IsPermanent reports whether retrying err cannot succeed: bad recipients
// and SMTP 5xx replies.
func IsPermanent(err error) bool {
	if errors.Is(err, ErrInvalidRecipient) {
		return true
	}
	var te *textproto.Error
	if errors.As(err, &te) {
		return te.Code >= 500
	}
	return false
}
