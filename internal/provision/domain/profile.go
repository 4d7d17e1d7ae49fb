package domain

import "time"

// ProfileData holds the optional attributes imported from the member
// spreadsheet. Nil means absent, which is distinct from an empty value.
type ProfileData struct {
	FullName               *string
	Gender                 *string
	MaritalStatus          *string
	Race                   *string
	Religion               *string
	DateOfBirth            *string
	BornPlace              *string
	PassportNumber         *string
	ARCNumber              *string
	IdentityCardNumber     *string
	TelephoneMalaysia      *string
	TelephoneKorea         *string
	AddressMalaysia        *string
	AddressKorea           *string
	StudyingPlace          *string
	StudyCourse            *string
	StudyLevel             *string
	StudyStartDate         *string
	StudyEndDate           *string
	StudyYear              *string
	PPMKBatch              *string
	Sponsorship            *string
	SponsorshipAddress     *string
	SponsorshipPhoneNumber *string
	BloodType              *string
	Allergy                *string
	MedicalCondition       *string
	NextOfKin              *string
	NextOfKinRelationship  *string
	NextOfKinContactNumber *string
}

// Profile is the public-facing record of a member, keyed by identity id.
type Profile struct {
	UserID             string
	Username           string
	DisplayName        string
	Email              string
	MustChangePassword bool
	Bio                string
	Data               ProfileData
	CreatedAt          time.Time
	UpdatedAt          time.Time
}

// Member is a profile joined with its effective role, as listed to admins.
type Member struct {
	Profile Profile
	Role    Role
}
