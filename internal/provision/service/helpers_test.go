package service

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/ppmkfriends/ppmkconnect/internal/provision/domain"
	"github.com/ppmkfriends/ppmkconnect/internal/provision/mail"
	"github.com/ppmkfriends/ppmkconnect/internal/provision/store"
	"github.com/ppmkfriends/ppmkconnect/internal/provision/store/drivers/sqlite"
	"github.com/ppmkfriends/ppmkconnect/pkg/cryptox"
)

const testOperator = "01J0000000000000000000OPER"

func TestMain(m *testing.M) {
	cryptox.SetPepper("service-test-pepper")
	os.Exit(m.Run())
}

func newTestStore(t *testing.T) *sqlite.Store {
	t.Helper()
	s, err := sqlite.NewStore(":memory:")
	require.NoError(t, err)
	require.NoError(t, s.ApplyMigrations())
	t.Cleanup(func() { _ = s.Close() })
	return s
}

// flakyIdentities fails CreateUser for selected emails and can block until
// the context is done.
type flakyIdentities struct {
	next  IdentityProvider
	fail  map[string]error
	block bool

	mu    sync.Mutex
	calls []string
}

func (f *flakyIdentities) CreateUser(ctx context.Context, u domain.NewIdentity) (string, error) {
	f.mu.Lock()
	f.calls = append(f.calls, u.Email)
	f.mu.Unlock()

	if f.block {
		<-ctx.Done()
		return "", ctx.Err()
	}
	if err, ok := f.fail[u.Email]; ok {
		return "", err
	}
	return f.next.CreateUser(ctx, u)
}

// brokenTxStore fails every transaction, which is where profile and role
// are written.
type brokenTxStore struct {
	store.Store
}

func (b brokenTxStore) WithTx(ctx context.Context, fn func(tx store.Tx) error) error {
	return errors.New("database is locked")
}

// recordingSender captures messages and fails with err when set.
type recordingSender struct {
	mu    sync.Mutex
	sent  []mail.Message
	calls int
	err   error
	panic bool
}

func (r *recordingSender) Send(ctx context.Context, msg mail.Message) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls++
	if r.panic {
		panic("sender exploded")
	}
	if r.err != nil {
		return r.err
	}
	r.sent = append(r.sent, msg)
	return nil
}

type fixture struct {
	store      *sqlite.Store
	identities *flakyIdentities
	sender     *recordingSender
	batch      *BatchService
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	s := newTestStore(t)
	ids := &flakyIdentities{next: &DirectoryIdentityProvider{Store: s}, fail: map[string]error{}}
	sender := &recordingSender{}
	return &fixture{
		store:      s,
		identities: ids,
		sender:     sender,
		batch: &BatchService{
			Provisioner: NewProvisioner(s, ids),
			Dispatcher:  &Dispatcher{Sender: sender, MaxAttempts: 2, InitialInterval: time.Millisecond},
			Secrets:     func() (string, error) { return "Generated1!xy", nil },
			RowTimeout:  5 * time.Second,
		},
	}
}

func account(email, name string) domain.AccountRequest {
	return domain.AccountRequest{
		Email:    email,
		Password: "Sup3rSecret!",
		FullName: name,
		Profile:  domain.ProfileData{FullName: &name},
	}
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}
