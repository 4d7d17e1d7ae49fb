// Package rowmap converts spreadsheet rows into account requests.
//
// Rows are keyed by the header cells of the member sheet. Every row is
// checked in a single pass so the operator sees all problems of a row at
// once instead of fixing them one upload at a time.
package rowmap

import (
	"errors"
	"fmt"
	"strings"

	"github.com/ppmkfriends/ppmkconnect/internal/provision/domain"
	"github.com/ppmkfriends/ppmkconnect/internal/provision/validate"
)

// Sheet headers.
const (
	HeaderEmail                  = "email"
	HeaderFullName               = "fullName"
	HeaderRole                   = "role"
	HeaderGender                 = "gender"
	HeaderMaritalStatus          = "maritalStatus"
	HeaderRace                   = "race"
	HeaderReligion               = "religion"
	HeaderDateOfBirth            = "dateOfBirth"
	HeaderBornPlace              = "bornPlace"
	HeaderPassportNumber         = "passportNumber"
	HeaderARCNumber              = "arcNumber"
	HeaderIdentityCardNumber     = "identityCardNumber"
	HeaderTelephoneMalaysia      = "telephoneNumbers Malaysia"
	HeaderTelephoneKorea         = "telephoneNumbers Korea"
	HeaderAddressMalaysia        = "addresses Malaysia"
	HeaderAddressKorea           = "addresses Korea"
	HeaderStudyingPlace          = "studyingPlace"
	HeaderStudyCourse            = "studyCourse"
	HeaderStudyLevel             = "studyLevel"
	HeaderStudyStartDate         = "studyPeriod StartDate"
	HeaderStudyEndDate           = "studyPeriod EndDate"
	HeaderStudyYear              = "studyYear"
	HeaderPPMKBatch              = "ppmkBatch"
	HeaderSponsorship            = "sponsorship"
	HeaderSponsorshipAddress     = "sponsorshipAddress"
	HeaderSponsorshipPhoneNumber = "sponsorshipPhoneNumber"
	HeaderBloodType              = "bloodType"
	HeaderAllergy                = "allergy"
	HeaderMedicalCondition       = "medicalCondition"
	HeaderNextOfKin              = "nextOfKin"
	HeaderNextOfKinRelationship  = "nextOfKinRelationship"
	HeaderNextOfKinContactNumber = "nextOfKinContactNumber"
)

// ErrSecret wraps a failure of the secret generator. It is never a row
// problem: callers must abort the whole import.
var ErrSecret = errors.New("rowmap: secret generation failed")

// SecretFunc produces the initial password of a mapped account.
type SecretFunc func() (string, error)

// FieldErrors lists every field-level problem of one row.
type FieldErrors = validate.ValidationError

// required holds the fields every row must carry.
type required struct {
	Email    string `field:"email" validate:"required,email"`
	FullName string `field:"fullName" validate:"required"`
}

// Mapper maps rows using a shared validator.
type Mapper struct {
	v   *validate.Validator
	gen SecretFunc
}

func New(gen SecretFunc) *Mapper {
	return &Mapper{v: validate.New(), gen: gen}
}

// Map converts one row. It returns *FieldErrors when the row is invalid and
// an error wrapping ErrSecret when no password could be generated. The role
// column is passed through untouched except that blank becomes member.
func (m *Mapper) Map(row map[string]string) (domain.AccountRequest, error) {
	cells := normalise(row)

	req := domain.AccountRequest{
		Email:    value(cells, HeaderEmail),
		FullName: value(cells, HeaderFullName),
		Role:     value(cells, HeaderRole),
	}
	if req.Role == "" {
		req.Role = string(domain.RoleMember)
	}

	if err := m.v.Struct(required{Email: req.Email, FullName: req.FullName}); err != nil {
		return domain.AccountRequest{Email: req.Email}, err
	}

	secret, err := m.gen()
	if err != nil {
		return domain.AccountRequest{}, fmt.Errorf("%w: %v", ErrSecret, err)
	}
	req.Password = secret

	req.Profile = domain.ProfileData{
		FullName:               optional(req.FullName),
		Gender:                 lookup(cells, HeaderGender),
		MaritalStatus:          lookup(cells, HeaderMaritalStatus),
		Race:                   lookup(cells, HeaderRace),
		Religion:               lookup(cells, HeaderReligion),
		DateOfBirth:            lookup(cells, HeaderDateOfBirth),
		BornPlace:              lookup(cells, HeaderBornPlace),
		PassportNumber:         lookup(cells, HeaderPassportNumber),
		ARCNumber:              lookup(cells, HeaderARCNumber),
		IdentityCardNumber:     lookup(cells, HeaderIdentityCardNumber),
		TelephoneMalaysia:      lookup(cells, HeaderTelephoneMalaysia),
		TelephoneKorea:         lookup(cells, HeaderTelephoneKorea),
		AddressMalaysia:        lookup(cells, HeaderAddressMalaysia),
		AddressKorea:           lookup(cells, HeaderAddressKorea),
		StudyingPlace:          lookup(cells, HeaderStudyingPlace),
		StudyCourse:            lookup(cells, HeaderStudyCourse),
		StudyLevel:             lookup(cells, HeaderStudyLevel),
		StudyStartDate:         lookup(cells, HeaderStudyStartDate),
		StudyEndDate:           lookup(cells, HeaderStudyEndDate),
		StudyYear:              lookup(cells, HeaderStudyYear),
		PPMKBatch:              lookup(cells, HeaderPPMKBatch),
		Sponsorship:            lookup(cells, HeaderSponsorship),
		SponsorshipAddress:     lookup(cells, HeaderSponsorshipAddress),
		SponsorshipPhoneNumber: lookup(cells, HeaderSponsorshipPhoneNumber),
		BloodType:              lookup(cells, HeaderBloodType),
		Allergy:                lookup(cells, HeaderAllergy),
		MedicalCondition:       lookup(cells, HeaderMedicalCondition),
		NextOfKin:              lookup(cells, HeaderNextOfKin),
		NextOfKinRelationship:  lookup(cells, HeaderNextOfKinRelationship),
		NextOfKinContactNumber: lookup(cells, HeaderNextOfKinContactNumber),
	}
	return req, nil
}

// RowError is an invalid sheet row. Line is the 1-based sheet line, with
// the header on line 1.
type RowError struct {
	Line   int
	Email  string
	Fields map[string]string
}

// MapSheet maps every data row. Valid rows are returned in sheet order;
// invalid rows are reported separately and do not stop the mapping. Blank
// rows are skipped. A secret generator failure aborts with an error.
func (m *Mapper) MapSheet(rows []map[string]string) ([]domain.AccountRequest, []RowError, error) {
	var (
		reqs    []domain.AccountRequest
		invalid []RowError
	)
	for i, row := range rows {
		if blank(row) {
			continue
		}

		req, err := m.Map(row)
		if err != nil {
			var fe *FieldErrors
			if errors.As(err, &fe) {
				invalid = append(invalid, RowError{Line: i + 2, Email: req.Email, Fields: fe.Fields})
				continue
			}
			return nil, nil, err
		}
		reqs = append(reqs, req)
	}
	return reqs, invalid, nil
}

func normalise(row map[string]string) map[string]string {
	out := make(map[string]string, len(row))
	for k, v := range row {
		out[strings.TrimSpace(k)] = v
	}
	return out
}

func value(cells map[string]string, header string) string {
	return strings.TrimSpace(cells[header])
}

func lookup(cells map[string]string, header string) *string {
	return optional(value(cells, header))
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func blank(row map[string]string) bool {
	for _, v := range row {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	return true
}
