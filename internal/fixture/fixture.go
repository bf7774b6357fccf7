// Package fixture loads expected analytics view rows from JSON files.
//
// A fixture file looks like:
//
//	{
//	  "education_organizations": [
//	    {"education_organization_key": 255901, "name_of_institution": "Grand Bend ISD",
//	     "last_modified_date": "2021-01-01T00:00:00"}
//	  ],
//	  "user_authorizations": [
//	    {"user_key": 100, "user_scope": "District", "student_permission": "All",
//	     "section_permission": null, "school_permission": null, "district_id": 255901}
//	  ]
//	}
package fixture

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/goccy/go-json"

	"github.com/stemsi/analytics-middletier/internal/model"
	"github.com/stemsi/analytics-middletier/internal/validator"
)

// ErrInvalidFixture is returned when a fixture cannot be decoded or breaks a
// documented column width.
var ErrInvalidFixture = errors.New("invalid fixture")

// InvalidError carries the per-field problems of a rejected fixture.
type InvalidError struct {
	Fields map[string]string
}

func (e *InvalidError) Error() string {
	return fmt.Sprintf("%s: %d field error(s)", ErrInvalidFixture, len(e.Fields))
}

func (e *InvalidError) Unwrap() error { return ErrInvalidFixture }

// Fixture is the decoded content of a fixture file.
type Fixture struct {
	EducationOrganizations []EducationOrganization `json:"education_organizations" validate:"dive"`
	UserAuthorizations     []UserAuthorization     `json:"user_authorizations" validate:"dive"`
}

// EducationOrganization is an expected EPP dimension row.
type EducationOrganization struct {
	EducationOrganizationKey int       `json:"education_organization_key"`
	NameOfInstitution        *string   `json:"name_of_institution"`
	LastModifiedDate         Timestamp `json:"last_modified_date"`
}

// UserAuthorization is an expected user authorization row. The limits are the
// widths of the view's columns.
type UserAuthorization struct {
	UserKey              int     `json:"user_key"`
	UserScope            *string `json:"user_scope" validate:"omitnil,max=50"`
	StudentPermission    string  `json:"student_permission" validate:"required,max=3"`
	SectionPermission    *string `json:"section_permission" validate:"omitnil,max=50"`
	SectionKeyPermission *string `json:"section_key_permission"`
	SchoolPermission     *string `json:"school_permission" validate:"omitnil,max=30"`
	DistrictID           *int    `json:"district_id"`
}

// Load decodes and checks a fixture.
func Load(r io.Reader) (*Fixture, error) {
	dec := json.NewDecoder(r)
	dec.DisallowUnknownFields()

	var f Fixture
	if err := dec.Decode(&f); err != nil {
		return nil, &InvalidError{Fields: map[string]string{"detail": err.Error()}}
	}
	if fields := validator.Struct(f); fields != nil {
		return nil, &InvalidError{Fields: fields}
	}
	return &f, nil
}

// LoadBytes is Load over an in-memory document.
func LoadBytes(raw []byte) (*Fixture, error) {
	return Load(bytes.NewReader(raw))
}

// LoadFile reads and checks the fixture at path.
func LoadFile(path string) (*Fixture, error) {
	fh, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open fixture: %w", err)
	}
	defer fh.Close()

	f, err := Load(fh)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return f, nil
}

// EducationOrganizationRows converts the expected rows into view records.
func (f *Fixture) EducationOrganizationRows() []model.EducationOrganizationDimension {
	rows := make([]model.EducationOrganizationDimension, len(f.EducationOrganizations))
	for i, e := range f.EducationOrganizations {
		rows[i] = model.EducationOrganizationDimension{
			EducationOrganizationKey: e.EducationOrganizationKey,
			NameOfInstitution:        e.NameOfInstitution,
			LastModifiedDate:         e.LastModifiedDate.Time,
		}
	}
	return rows
}

// UserAuthorizationRows converts the expected rows into view records.
func (f *Fixture) UserAuthorizationRows() []model.UserAuthorization {
	rows := make([]model.UserAuthorization, len(f.UserAuthorizations))
	for i, u := range f.UserAuthorizations {
		rows[i] = model.UserAuthorization{
			UserKey:              u.UserKey,
			UserScope:            u.UserScope,
			StudentPermission:    u.StudentPermission,
			SectionPermission:    u.SectionPermission,
			SectionKeyPermission: u.SectionKeyPermission,
			SchoolPermission:     u.SchoolPermission,
			DistrictID:           u.DistrictID,
		}
	}
	return rows
}

// Timestamp accepts RFC 3339 as well as the zone-less forms the views use.
// Zone-less values are read as UTC.
type Timestamp struct {
	time.Time
}

var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02",
}

func (t *Timestamp) UnmarshalJSON(raw []byte) error {
	s := strings.Trim(string(raw), `"`)
	for _, layout := range timestampLayouts {
		if parsed, err := time.Parse(layout, s); err == nil {
			t.Time = parsed.UTC()
			return nil
		}
	}
	return fmt.Errorf("unrecognised timestamp %q", s)
}

func (t Timestamp) MarshalJSON() ([]byte, error) {
	return json.Marshal(t.Time.UTC().Format("2006-01-02T15:04:05.999999999"))
}
