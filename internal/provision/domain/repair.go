package domain

import "time"

// RepairKind names the provisioning step a RepairTask completes.
type RepairKind string

const (
	RepairProfile RepairKind = "profile"
	RepairRole    RepairKind = "role"
)

// RepairTask records a profile or role write that failed after the identity
// was created. The repair worker replays Payload until it succeeds or the
// attempt budget is spent.
type RepairTask struct {
	ID            string
	UserID        string
	Kind          RepairKind
	Payload       []byte // JSON of RepairPayload
	Attempts      int
	LastError     string
	NextAttemptAt time.Time
	CreatedAt     time.Time
	DoneAt        *time.Time
}

// RepairPayload is everything needed to replay the profile and role writes.
type RepairPayload struct {
	Profile    Profile        `json:"profile"`
	Assignment RoleAssignment `json:"assignment"`
}
