package service

import (
	"context"
	"errors"
	"fmt"
	"net/textproto"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/ppmkfriends/ppmkconnect/internal/provision/mail"
)

func TestDispatchRendersCredentials(t *testing.T) {
	s := &recordingSender{}
	d := &Dispatcher{Sender: s, MaxAttempts: 3, InitialInterval: time.Millisecond}

	require.NoError(t, d.Dispatch(context.Background(), "siti@ppmk.my", "Xy7!abcdEFGH", "Siti <Admin>"))
	require.Len(t, s.sent, 1)
	msg := s.sent[0]
	require.Equal(t, "siti@ppmk.my", msg.To)
	require.Equal(t, mail.CredentialsSubject, msg.Subject)
	require.Contains(t, msg.HTML, "Xy7!abcdEFGH")
	require.Contains(t, msg.HTML, "Siti &lt;Admin&gt;")
}

func TestDispatchRetriesTransientFailures(t *testing.T) {
	s := &recordingSender{err: errors.New("i/o timeout")}
	d := &Dispatcher{Sender: s, MaxAttempts: 3, InitialInterval: time.Millisecond}

	err := d.Dispatch(context.Background(), "a@ppmk.my", "secret", "A")
	require.Error(t, err)
	require.Equal(t, 3, s.calls)
}

func TestDispatchDoesNotRetryPermanentFailures(t *testing.T) {
	for _, perm := range []error{
		mail.ErrInvalidRecipient,
		fmt.Errorf("rcpt: %w", &textproto.Error{Code: 550, Msg: "no such user"}),
	} {
		s := &recordingSender{err: perm}
		d := &Dispatcher{Sender: s, MaxAttempts: 5, InitialInterval: time.Millisecond}

		err := d.Dispatch(context.Background(), "a@ppmk.my", "secret", "A")
		require.Error(t, err)
		require.Equal(t, 1, s.calls)
	}
}

func TestDispatchSingleAttempt(t *testing.T) {
	s := &recordingSender{err: errors.New("i/o timeout")}
	d := &Dispatcher{Sender: s, MaxAttempts: 1}

	require.Error(t, d.Dispatch(context.Background(), "a@ppmk.my", "secret", "A"))
	require.Equal(t, 1, s.calls)
}

func TestDispatchRecoversPanic(t *testing.T) {
	s := &recordingSender{panic: true}
	d := &Dispatcher{Sender: s, MaxAttempts: 3}

	err := d.Dispatch(context.Background(), "a@ppmk.my", "secret", "A")
	require.ErrorContains(t, err, "panicked")
}

func TestDispatchHonoursRedirect(t *testing.T) {
	s := &recordingSender{}
	d := NewDispatcher(mail.Redirect(s, "sandbox@ppmk.my"), 1)

	require.NoError(t, d.Dispatch(context.Background(), "real@ppmk.my", "secret", "Real"))
	require.Equal(t, "sandbox@ppmk.my", s.sent[0].To)
	require.Contains(t, s.sent[0].HTML, "real@ppmk.my")
}
