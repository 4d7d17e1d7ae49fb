package service

import (
	"context"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v5"

	"github.com/ppmkfriends/ppmkconnect/internal/provision/mail"
	"github.com/ppmkfriends/ppmkconnect/pkg/slogx"
)

const (
	DefaultMailAttempts        = 3
	DefaultMailInitialInterval = 500 * time.Millisecond
)

// Dispatcher sends the credentials notification for a provisioned account.
// Only the send is retried; rendering errors fail immediately.
type Dispatcher struct {
	Sender          mail.Sender
	MaxAttempts     uint
	InitialInterval time.Duration
}

func NewDispatcher(sender mail.Sender, maxAttempts uint) *Dispatcher {
	return &Dispatcher{
		Sender:          sender,
		MaxAttempts:     maxAttempts,
		InitialInterval: DefaultMailInitialInterval,
	}
}

// Dispatch delivers the credentials. A panic in the sender is recovered and
// reported as an error.
func (d *Dispatcher) Dispatch(ctx context.Context, email, secret, fullName string) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("mail sender panicked: %v", r)
		}
	}()

	msg, err := mail.RenderCredentials(mail.CredentialsData{
		FullName: fullName,
		Email:    email,
		Password: secret,
	})
	if err != nil {
		return err
	}

	attempts := d.MaxAttempts
	if attempts == 0 {
		attempts = DefaultMailAttempts
	}

	b := backoff.NewExponentialBackOff()
	if d.InitialInterval > 0 {
		b.InitialInterval = d.InitialInterval
	}

	l := slogx.FromContext(ctx)
	try := 0
	_, err = backoff.Retry(ctx, func() (struct{}, error) {
		try++
		if err := d.Sender.Send(ctx, msg); err != nil {
			if mail.IsPermanent(err) {
				return struct{}{}, backoff.Permanent(err)
			}
			l.Warn("credentials email attempt failed", "email", email, "attempt", try, "error", err)
			return struct{}{}, err
		}
		return struct{}{}, nil
	}, backoff.WithBackOff(b), backoff.WithMaxTries(attempts))
	return err
}
