package sheet

import (
	"encoding/csv"
	"io"
	"strings"
	"time"
)

var credentialsHeader = []string{"Email", "Password", "Full Name", "Created Date"}

// Credential is one successfully provisioned account in the export.
type Credential struct {
	Email    string
	Password string
	FullName string
}

// CredentialsFileName is the export name for the given day.
func CredentialsFileName(now time.Time) string {
	return "user-credentials-" + now.Format(time.DateOnly) + ".csv"
}

// formulaTriggers are the leading characters a spreadsheet evaluates.
const formulaTriggers = "=+-@\t\r"

// EscapeCell prefixes a single quote to values a spreadsheet would treat
// as a formula. The quote is not part of the stored value.
func EscapeCell(v string) string {
	if v != "" && strings.ContainsRune(formulaTriggers, rune(v[0])) {
		return "'" + v
	}
	return v
}

// WriteCredentialsCSV writes creds with a creation timestamp of created.
// Fields are quoted where needed, so names with commas survive, and
// formula-like cells are escaped with EscapeCell.
func WriteCredentialsCSV(w io.Writer, creds []Credential, created time.Time) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(credentialsHeader); err != nil {
		return err
	}
	stamp := created.Format(time.DateTime)
	for _, c := range creds {
		if err := cw.Write([]string{EscapeCell(c.Email), EscapeCell(c.Password), EscapeCell(c.FullName), stamp}); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}
