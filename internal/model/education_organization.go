package model

import "time"

// EducationOrganizationDimension is one row of the EPP education organization
// dimension view.
type EducationOrganizationDimension struct {
	EducationOrganizationKey int       `json:"education_organization_key"`
	NameOfInstitution        *string   `json:"name_of_institution"`
	LastModifiedDate         time.Time `json:"last_modified_date"`
}
