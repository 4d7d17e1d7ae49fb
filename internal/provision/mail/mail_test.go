package mail_test

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/textproto"
	"strings"
	"sync"
	"testing"

	"github.com/ppmkfriends/ppmkconnect/internal/provision/mail"
	"github.com/stretchr/testify/require"
)

type recordingSender struct {
	mu   sync.Mutex
	sent []mail.Message
}

func (r *recordingSender) Send(_ context.Context, msg mail.Message) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sent = append(r.sent, msg)
	return nil
}

func TestRenderCredentials(t *testing.T) {
	msg, err := mail.RenderCredentials(mail.CredentialsData{
		FullName: "Nur <Aisyah>",
		Email:    "nur@example.com",
		Password: "Ab3!xY9&qw2Z",
	})
	require.NoError(t, err)
	require.Equal(t, "nur@example.com", msg.To)
	require.Equal(t, mail.CredentialsSubject, msg.Subject)
	require.Contains(t, msg.HTML, "Welcome Nur &lt;Aisyah&gt;!")
	require.Contains(t, msg.HTML, "nur@example.com")
	require.Contains(t, msg.HTML, "Ab3!xY9&amp;qw2Z")
}

func TestRedirect(t *testing.T) {
	rec := &recordingSender{}

	t.Run("empty sandbox keeps recipient", func(t *testing.T) {
		s := mail.Redirect(rec, " ")
		require.NoError(t, s.Send(context.Background(), mail.Message{To: "a@example.com"}))
		require.Equal(t, "a@example.com", rec.sent[len(rec.sent)-1].To)
	})

	t.Run("sandbox overrides recipient", func(t *testing.T) {
		s := mail.Redirect(rec, "delivered@sandbox.example")
		require.NoError(t, s.Send(context.Background(), mail.Message{To: "a@example.com", Subject: "x"}))
		last := rec.sent[len(rec.sent)-1]
		require.Equal(t, "delivered@sandbox.example", last.To)
		require.Equal(t, "x", last.Subject)
	})
}

func TestIsPermanent(t *testing.T) {
	require.True(t, mail.IsPermanent(fmt.Errorf("wrap: %w", mail.ErrInvalidRecipient)))
	require.True(t, mail.IsPermanent(&textproto.Error{Code: 550, Msg: "no such user"}))
	require.False(t, mail.IsPermanent(&textproto.Error{Code: 421, Msg: "try later"}))
	require.False(t, mail.IsPermanent(errors.New("connection reset")))
}

// fakeSMTP is a minimal plaintext SMTP server. RCPT for any address
// starting with "bounce" is rejected with 550.
type fakeSMTP struct {
	ln   net.Listener
	mu   sync.Mutex
	data []string
}

func startFakeSMTP(t *testing.T) *fakeSMTP {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	f := &fakeSMTP{ln: ln}
	t.Cleanup(func() { _ = ln.Close() })
	go f.serve()
	return f
}

func (f *fakeSMTP) serve() {
	for {
		conn, err := f.ln.Accept()
		if err != nil {
			return
		}
		go f.handle(conn)
	}
}

func (f *fakeSMTP) handle(conn net.Conn) {
	defer conn.Close()
	tp := textproto.NewConn(conn)
	_ = tp.PrintfLine("220 fake ESMTP")

	for {
		line, err := tp.ReadLine()
		if err != nil {
			return
		}
		cmd := strings.ToUpper(line)
		switch {
		case strings.HasPrefix(cmd, "EHLO"), strings.HasPrefix(cmd, "HELO"):
			_ = tp.PrintfLine("250 fake")
		case strings.HasPrefix(cmd, "MAIL FROM"):
			_ = tp.PrintfLine("250 ok")
		case strings.HasPrefix(cmd, "RCPT TO"):
			if strings.Contains(cmd, "<BOUNCE") {
				_ = tp.PrintfLine("550 no such user")
				continue
			}
			_ = tp.PrintfLine("250 ok")
		case cmd == "DATA":
			_ = tp.PrintfLine("354 go ahead")
			body, err := tp.ReadDotLines()
			if err != nil {
				return
			}
			f.mu.Lock()
			f.data = append(f.data, strings.Join(body, "\n"))
			f.mu.Unlock()
			_ = tp.PrintfLine("250 queued")
		case cmd == "QUIT":
			_ = tp.PrintfLine("221 bye")
			return
		default:
			_ = tp.PrintfLine("250 ok")
		}
	}
}

func (f *fakeSMTP) messages() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.data...)
}

func newSMTPSender(t *testing.T, f *fakeSMTP) *mail.SMTPSender {
	t.Helper()
	host, port, err := net.SplitHostPort(f.ln.Addr().String())
	require.NoError(t, err)
	var p int
	_, err = fmt.Sscanf(port, "%d", &p)
	require.NoError(t, err)

	s, err := mail.NewSMTPSender(mail.SMTPConfig{Host: host, Port: p, From: "PPMK Admin <admin@ppmk.example>"})
	require.NoError(t, err)
	return s
}

func TestSMTPSender(t *testing.T) {
	f := startFakeSMTP(t)
	s := newSMTPSender(t, f)

	msg, err := mail.RenderCredentials(mail.CredentialsData{FullName: "Ali", Email: "ali@example.com", Password: "pw"})
	require.NoError(t, err)

	require.NoError(t, s.Send(context.Background(), msg))

	got := f.messages()
	require.Len(t, got, 1)
	require.Contains(t, got[0], "To: <ali@example.com>")
	require.Contains(t, got[0], "Subject: Your Account Credentials")
	require.Contains(t, got[0], "Content-Type: text/html")
	require.Contains(t, got[0], "Welcome Ali!")
}

func TestSMTPSenderRejections(t *testing.T) {
	f := startFakeSMTP(t)
	s := newSMTPSender(t, f)

	t.Run("malformed address", func(t *testing.T) {
		err := s.Send(context.Background(), mail.Message{To: "not an address"})
		require.ErrorIs(t, err, mail.ErrInvalidRecipient)
		require.True(t, mail.IsPermanent(err))
	})

	t.Run("server rejects recipient", func(t *testing.T) {
		err := s.Send(context.Background(), mail.Message{To: "bounce@example.com", Subject: "s", HTML: "<p>x</p>"})
		require.Error(t, err)
		require.True(t, mail.IsPermanent(err))
	})
}

func TestNewSMTPSenderValidation(t *testing.T) {
	_, err := mail.NewSMTPSender(mail.SMTPConfig{From: "a@example.com"})
	require.Error(t, err)

	_, err = mail.NewSMTPSender(mail.SMTPConfig{Host: "localhost", From: "not valid"})
	require.Error(t, err)
}
