package provisionsdk

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"sync"
)

// Session is an authenticated operator.
type Session struct {
	client *Client

	mu                 sync.RWMutex
	accessToken        string
	role               string
	mustChangePassword bool
}

func (s *Session) AccessToken() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.accessToken
}

func (s *Session) Role() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.role
}

// MustChangePassword reports whether the server asked this operator to
// replace a generated password before doing anything else.
func (s *Session) MustChangePassword() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.mustChangePassword
}

// Me returns the identity and profile behind the session.
func (s *Session) Me(ctx context.Context) (*MeResponse, error) {
	resp, err := s.doAuthRequest(ctx, http.MethodGet, "/v1/me", nil, nil)
	if err != nil {
		return nil, err
	}

	var me MeResponse
	if err := decodeJSON(resp, &me, http.StatusOK); err != nil {
		return nil, err
	}
	return &me, nil
}

// ChangePassword replaces the operator's password and clears the
// must-change flag on success.
func (s *Session) ChangePassword(ctx context.Context, current, next string) error {
	body, err := json.Marshal(ChangePasswordRequest{CurrentPassword: current, NewPassword: next})
	if err != nil {
		return fmt.Errorf("failed to encode request: %w", err)
	}

	resp, err := s.doAuthRequest(ctx, http.MethodPost, "/v1/auth/password", bytes.NewReader(body), jsonHeaders)
	if err != nil {
		return err
	}
	if err := checkStatusNoContent(resp); err != nil {
		return err
	}

	s.mu.Lock()
	s.mustChangePassword = false
	s.mu.Unlock()
	return nil
}

// BulkCreateUsers submits one import batch. Per-row failures are reported in
// the response; an error is only returned when the batch as a whole failed.
func (s *Session) BulkCreateUsers(ctx context.Context, req BulkCreateUsersRequest) (*BulkCreateUsersResponse, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("failed to encode request: %w", err)
	}

	resp, err := s.doAuthRequest(ctx, http.MethodPost, "/v1/users/bulk", bytes.NewReader(body), jsonHeaders)
	if err != nil {
		return nil, err
	}

	var out BulkCreateUsersResponse
	if err := decodeJSON(resp, &out, http.StatusOK); err != nil {
		return nil, err
	}
	return &out, nil
}

// UpdateUserRole replaces the role of userID.
func (s *Session) UpdateUserRole(ctx context.Context, userID, role string) error {
	body, err := json.Marshal(UpdateRoleRequest{Role: role})
	if err != nil {
		return fmt.Errorf("failed to encode request: %w", err)
	}

	resp, err := s.doAuthRequest(ctx, http.MethodPut, "/v1/users/"+url.PathEscape(userID)+"/role", bytes.NewReader(body), jsonHeaders)
	if err != nil {
		return err
	}
	return checkStatusNoContent(resp)
}

// ListUsers lists members, optionally filtered by a free text query.
func (s *Session) ListUsers(ctx context.Context, query string) (*ListUsersResponse, error) {
	path := "/v1/users"
	if query != "" {
		path += "?" + url.Values{"q": {query}}.Encode()
	}

	resp, err := s.doAuthRequest(ctx, http.MethodGet, path, nil, nil)
	if err != nil {
		return nil, err
	}

	var out ListUsersResponse
	if err := decodeJSON(resp, &out, http.StatusOK); err != nil {
		return nil, err
	}
	return &out, nil
}

func (s *Session) ListInvitations(ctx context.Context) (*ListInvitationsResponse, error) {
	resp, err := s.doAuthRequest(ctx, http.MethodGet, "/v1/invitations", nil, nil)
	if err != nil {
		return nil, err
	}

	var out ListInvitationsResponse
	if err := decodeJSON(resp, &out, http.StatusOK); err != nil {
		return nil, err
	}
	return &out, nil
}
