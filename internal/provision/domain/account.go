package domain

// AccountRequest is one user to provision. Role is kept as received and
// validated by the provisioner.
type AccountRequest struct {
	Email    string
	Password string
	FullName string
	Role     string
	Profile  ProfileData
}

// RowOutcome is the per-row result of a batch.
type RowOutcome struct {
	Email       string
	Success     bool
	UserID      string
	Password    string
	FullName    string
	Error       string
	FieldErrors map[string]string
	Warnings    []string
	EmailSent   bool
}

func FailedOutcome(email, reason string) RowOutcome {
	return RowOutcome{Email: email, Error: reason}
}

type BatchSummary struct {
	Total      int
	Success    int
	Failed     int
	EmailsSent int
}

type BatchResult struct {
	Results []RowOutcome
	Summary BatchSummary
}
