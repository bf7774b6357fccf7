package model

import "time"

// MismatchKind classifies a difference between a fixture and a view.
type MismatchKind string

const (
	// MismatchMissing means an expected row is absent from the view.
	MismatchMissing MismatchKind = "missing"
	// MismatchUnexpected means the view holds a row the fixture does not list.
	MismatchUnexpected MismatchKind = "unexpected"
	// MismatchField means a matched row differs in one field.
	MismatchField MismatchKind = "field"
)

// Mismatch is one difference found while verifying a view.
type Mismatch struct {
	View     string       `json:"view"`
	Kind     MismatchKind `json:"kind"`
	Key      string       `json:"key"`
	Field    string       `json:"field,omitempty"`
	Expected string       `json:"expected,omitempty"`
	Actual   string       `json:"actual,omitempty"`
}

// ReportStatus tells whether a verification ran to the end.
type ReportStatus string

const (
	ReportCompleted ReportStatus = "completed"
	// ReportFailed means the job stopped before a diff was made; Error says why.
	ReportFailed ReportStatus = "failed"
)

// VerificationReport is the outcome of comparing a fixture with the views.
type VerificationReport struct {
	ID                     string       `json:"id"`
	Status                 ReportStatus `json:"status"`
	Error                  string       `json:"error,omitempty"`
	Passed                 bool         `json:"passed"`
	EducationOrganizations int          `json:"education_organizations_checked"`
	UserAuthorizations     int          `json:"user_authorizations_checked"`
	Mismatches             []Mismatch   `json:"mismatches"`
	CheckedAt              time.Time    `json:"checked_at"`
}

// VerificationJob is the queued form of an asynchronous verification.
type VerificationJob struct {
	ID         string    `json:"id"`
	Fixture    []byte    `json:"fixture"`
	EnqueuedAt time.Time `json:"enqueued_at"`
}

// VerificationAccepted is returned when a verification is queued.
type VerificationAccepted struct {
	ID     string `json:"id"`
	Status string `json:"status"`
}
