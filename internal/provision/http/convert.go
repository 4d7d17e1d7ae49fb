package http

import (
	"github.com/ppmkfriends/ppmkconnect/internal/provision/domain"
	"github.com/ppmkfriends/ppmkconnect/pkg/provisionsdk"
)

// toAccountRequests keeps a nil input nil so a missing users field stays
// distinguishable from an empty list.
func toAccountRequests(in []provisionsdk.AccountRequest) []domain.AccountRequest {
	if in == nil {
		return nil
	}
	out := make([]domain.AccountRequest, len(in))
	for i, u := range in {
		out[i] = domain.AccountRequest{
			Email:    u.Email,
			Password: u.Password,
			FullName: u.FullName,
			Role:     u.Role,
			Profile:  domain.ProfileData(u.ProfileData),
		}
	}
	return out
}

func toBulkResponse(res domain.BatchResult) provisionsdk.BulkCreateUsersResponse {
	out := provisionsdk.BulkCreateUsersResponse{
		Results: make([]provisionsdk.RowResult, len(res.Results)),
		Summary: provisionsdk.BulkSummary{
			Total:      res.Summary.Total,
			Success:    res.Summary.Success,
			Failed:     res.Summary.Failed,
			EmailsSent: res.Summary.EmailsSent,
		},
	}
	for i, r := range res.Results {
		out.Results[i] = provisionsdk.RowResult{
			Email:       r.Email,
			Success:     r.Success,
			UserID:      r.UserID,
			Password:    r.Password,
			FullName:    r.FullName,
			Error:       r.Error,
			FieldErrors: r.FieldErrors,
			Warnings:    r.Warnings,
			EmailSent:   r.EmailSent,
		}
	}
	return out
}

func toUserSummary(m domain.Member) provisionsdk.UserSummary {
	p := m.Profile
	return provisionsdk.UserSummary{
		UserID:      p.UserID,
		Email:       p.Email,
		Username:    p.Username,
		DisplayName: p.DisplayName,
		FullName:    deref(p.Data.FullName),
		StudyCourse: deref(p.Data.StudyCourse),
		StudyLevel:  deref(p.Data.StudyLevel),
		Role:        m.Role.String(),
		CreatedAt:   p.CreatedAt,
	}
}

func toInvitationInfo(inv domain.Invitation) provisionsdk.InvitationInfo {
	return provisionsdk.InvitationInfo{
		ID:        inv.ID,
		Email:     inv.Email,
		Role:      inv.Role.String(),
		InvitedBy: inv.InvitedBy,
		CreatedAt: inv.CreatedAt,
		ExpiresAt: inv.ExpiresAt,
		Used:      inv.Used,
		UsedAt:    inv.UsedAt,
	}
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
