package provisionsdk

import "time"

// ProfileData holds the optional profile attributes of one imported member.
// Nil means the attribute was not supplied.
type ProfileData struct {
	FullName               *string `json:"full_name,omitempty"`
	Gender                 *string `json:"gender,omitempty"`
	MaritalStatus          *string `json:"marital_status,omitempty"`
	Race                   *string `json:"race,omitempty"`
	Religion               *string `json:"religion,omitempty"`
	DateOfBirth            *string `json:"date_of_birth,omitempty"`
	BornPlace              *string `json:"born_place,omitempty"`
	PassportNumber         *string `json:"passport_number,omitempty"`
	ARCNumber              *string `json:"arc_number,omitempty"`
	IdentityCardNumber     *string `json:"identity_card_number,omitempty"`
	TelephoneMalaysia      *string `json:"telephone_malaysia,omitempty"`
	TelephoneKorea         *string `json:"telephone_korea,omitempty"`
	AddressMalaysia        *string `json:"address_malaysia,omitempty"`
	AddressKorea           *string `json:"address_korea,omitempty"`
	StudyingPlace          *string `json:"studying_place,omitempty"`
	StudyCourse            *string `json:"study_course,omitempty"`
	StudyLevel             *string `json:"study_level,omitempty"`
	StudyStartDate         *string `json:"study_start_date,omitempty"`
	StudyEndDate           *string `json:"study_end_date,omitempty"`
	StudyYear              *string `json:"study_year,omitempty"`
	PPMKBatch              *string `json:"ppmk_batch,omitempty"`
	Sponsorship            *string `json:"sponsorship,omitempty"`
	SponsorshipAddress     *string `json:"sponsorship_address,omitempty"`
	SponsorshipPhoneNumber *string `json:"sponsorship_phone_number,omitempty"`
	BloodType              *string `json:"blood_type,omitempty"`
	Allergy                *string `json:"allergy,omitempty"`
	MedicalCondition       *string `json:"medical_condition,omitempty"`
	NextOfKin              *string `json:"next_of_kin,omitempty"`
	NextOfKinRelationship  *string `json:"next_of_kin_relationship,omitempty"`
	NextOfKinContactNumber *string `json:"next_of_kin_contact_number,omitempty"`
}

// AccountRequest is one row of a bulk import.
type AccountRequest struct {
	Email       string      `json:"email"`
	Password    string      `json:"password,omitempty"`
	FullName    string      `json:"fullName"`
	Role        string      `json:"role,omitempty"`
	ProfileData ProfileData `json:"profileData"`
}

type BulkCreateUsersRequest struct {
	Users     []AccountRequest `json:"users"`
	CreatedBy string           `json:"createdBy,omitempty"`
}

// RowResult is the outcome of one row. Password is only present on success.
type RowResult struct {
	Email       string            `json:"email"`
	Success     bool              `json:"success"`
	UserID      string            `json:"userId,omitempty"`
	Password    string            `json:"password,omitempty"`
	FullName    string            `json:"fullName,omitempty"`
	Error       string            `json:"error,omitempty"`
	FieldErrors map[string]string `json:"fieldErrors,omitempty"`
	Warnings    []string          `json:"warnings,omitempty"`
	EmailSent   bool              `json:"emailSent"`
}

type BulkSummary struct {
	Total      int `json:"total"`
	Success    int `json:"success"`
	Failed     int `json:"failed"`
	EmailsSent int `json:"emailsSent"`
}

type BulkCreateUsersResponse struct {
	Results []RowResult `json:"results"`
	Summary BulkSummary `json:"summary"`
}

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type TokenResponse struct {
	AccessToken        string `json:"access_token"`
	TokenType          string `json:"token_type"`
	ExpiresIn          int    `json:"expires_in"`
	Role               string `json:"role"`
	MustChangePassword bool   `json:"must_change_password"`
}

type ChangePasswordRequest struct {
	CurrentPassword string `json:"current_password"`
	NewPassword     string `json:"new_password"`
}

type BootstrapRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	FullName string `json:"full_name"`
}

type BootstrapResponse struct {
	UserID string `json:"user_id"`
	Email  string `json:"email"`
	Role   string `json:"role"`
}

type MeResponse struct {
	UserID             string      `json:"user_id"`
	Email              string      `json:"email"`
	Username           string      `json:"username"`
	DisplayName        string      `json:"display_name"`
	Role               string      `json:"role"`
	MustChangePassword bool        `json:"must_change_password"`
	Bio                string      `json:"bio,omitempty"`
	Profile            ProfileData `json:"profile"`
}

type UpdateRoleRequest struct {
	Role string `json:"role"`
}

type UserSummary struct {
	UserID      string    `json:"user_id"`
	Email       string    `json:"email"`
	Username    string    `json:"username"`
	DisplayName string    `json:"display_name"`
	FullName    string    `json:"full_name,omitempty"`
	StudyCourse string    `json:"study_course,omitempty"`
	StudyLevel  string    `json:"study_level,omitempty"`
	Role        string    `json:"role"`
	CreatedAt   time.Time `json:"created_at"`
}

type ListUsersResponse struct {
	Users []UserSummary `json:"users"`
}

type InvitationInfo struct {
	ID        string     `json:"id"`
	Email     string     `json:"email"`
	Role      string     `json:"role"`
	InvitedBy string     `json:"invited_by"`
	CreatedAt time.Time  `json:"created_at"`
	ExpiresAt time.Time  `json:"expires_at"`
	Used      bool       `json:"used"`
	UsedAt    *time.Time `json:"used_at,omitempty"`
}

type ListInvitationsResponse struct {
	Invitations []InvitationInfo `json:"invitations"`
}

type HealthResponse struct {
	Status  string        `json:"status"`
	Uptime  string        `json:"uptime,omitempty"`
	Version string        `json:"version,omitempty"`
	Checks  *HealthChecks `json:"checks,omitempty"`
}

// HealthChecks reports the readiness of each dependency.
type HealthChecks struct {
	Database string `json:"database"`
	Signer   string `json:"signer"`
}
