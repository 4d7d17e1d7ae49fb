package rowmap_test

import (
	"errors"
	"testing"

	"github.com/ppmkfriends/ppmkconnect/internal/provision/rowmap"
	"github.com/stretchr/testify/require"
)

func fixedSecret() (string, error) { return "Fixed!Secret", nil }

func TestMapFullRow(t *testing.T) {
	m := rowmap.New(fixedSecret)

	req, err := m.Map(map[string]string{
		" email ":                   " ali@example.com ",
		"fullName":                  "Ali Hassan",
		"role":                      "admin",
		"gender":                    "Male",
		"telephoneNumbers Malaysia": "+60 12-345 6789",
		"addresses Korea":           "Daejeon",
		"studyPeriod StartDate":     "2022-03-01",
		"nextOfKinContactNumber":    "",
		"unknownColumn":             "ignored",
	})
	require.NoError(t, err)

	require.Equal(t, "ali@example.com", req.Email)
	require.Equal(t, "Ali Hassan", req.FullName)
	require.Equal(t, "admin", req.Role)
	require.Equal(t, "Fixed!Secret", req.Password)

	require.Equal(t, "Ali Hassan", *req.Profile.FullName)
	require.Equal(t, "Male", *req.Profile.Gender)
	require.Equal(t, "+60 12-345 6789", *req.Profile.TelephoneMalaysia)
	require.Equal(t, "Daejeon", *req.Profile.AddressKorea)
	require.Equal(t, "2022-03-01", *req.Profile.StudyStartDate)
	require.Nil(t, req.Profile.NextOfKinContactNumber, "blank cells are absent")
	require.Nil(t, req.Profile.Religion, "missing columns are absent")
}

func TestMapRoleDefaultsAndPassThrough(t *testing.T) {
	m := rowmap.New(fixedSecret)

	req, err := m.Map(map[string]string{"email": "a@example.com", "fullName": "A", "role": "  "})
	require.NoError(t, err)
	require.Equal(t, "member", req.Role)

	// Unknown roles are left for the provisioner to reject.
	req, err = m.Map(map[string]string{"email": "a@example.com", "fullName": "A", "role": "owner"})
	require.NoError(t, err)
	require.Equal(t, "owner", req.Role)
}

func TestMapReportsAllFieldErrors(t *testing.T) {
	m := rowmap.New(fixedSecret)

	_, err := m.Map(map[string]string{"email": "not-an-email", "fullName": " "})

	var fe *rowmap.FieldErrors
	require.ErrorAs(t, err, &fe)
	require.Len(t, fe.Fields, 2)
	require.Contains(t, fe.Fields, "email")
	require.Contains(t, fe.Fields, "fullName")
}

func TestMapSecretFailureIsNotARowError(t *testing.T) {
	m := rowmap.New(func() (string, error) { return "", errors.New("entropy exhausted") })

	_, err := m.Map(map[string]string{"email": "a@example.com", "fullName": "A"})
	require.ErrorIs(t, err, rowmap.ErrSecret)

	var fe *rowmap.FieldErrors
	require.False(t, errors.As(err, &fe))
}

func TestMapSheet(t *testing.T) {
	m := rowmap.New(fixedSecret)

	reqs, invalid, err := m.MapSheet([]map[string]string{
		{"email": "a@example.com", "fullName": "A"},
		{"email": "", "fullName": ""},
		{"email": "", "fullName": "No Email"},
		{"email": "c@example.com", "fullName": "C"},
	})
	require.NoError(t, err)

	require.Len(t, reqs, 2)
	require.Equal(t, "a@example.com", reqs[0].Email)
	require.Equal(t, "c@example.com", reqs[1].Email)

	require.Len(t, invalid, 1)
	require.Equal(t, 4, invalid[0].Line)
	require.Contains(t, invalid[0].Fields, "email")
}

func TestMapSheetAbortsOnSecretFailure(t *testing.T) {
	m := rowmap.New(func() (string, error) { return "", errors.New("boom") })

	_, _, err := m.MapSheet([]map[string]string{{"email": "a@example.com", "fullName": "A"}})
	require.ErrorIs(t, err, rowmap.ErrSecret)
}
