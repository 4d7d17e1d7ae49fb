package httpx

import (
	"context"

	"github.com/ppmkfriends/ppmkconnect/pkg/jwtx"
)

// Session is the authenticated operator resolved from the bearer token.
// Handlers receive it explicitly via SessionFrom and pass it down; nothing
// below the HTTP layer reads auth state from ambient globals.
type Session struct {
	UserID             string
	Email              string
	Role               string
	MustChangePassword bool
}

type sessionKey struct{}

func WithSession(ctx context.Context, s Session) context.Context {
	return context.WithValue(ctx, sessionKey{}, s)
}

func SessionFrom(ctx context.Context) (Session, bool) {
	s, ok := ctx.Value(sessionKey{}).(Session)
	return s, ok && s.UserID != ""
}

func sessionFromClaims(c jwtx.Claims) Session {
	return Session{
		UserID:             c.Subject,
		Email:              c.Email,
		Role:               c.Role,
		MustChangePassword: c.MustChangePassword,
	}
}
