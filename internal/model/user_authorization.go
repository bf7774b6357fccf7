package model

// UserAuthorization is one row of the row-level-security user authorization
// view. Widths in the comments are the view's column types.
type UserAuthorization struct {
	UserKey              int     `json:"user_key"`               // int, not null
	UserScope            *string `json:"user_scope"`             // varchar(50), null
	StudentPermission    string  `json:"student_permission"`     // varchar(3), not null
	SectionPermission    *string `json:"section_permission"`     // varchar(50), null
	SectionKeyPermission *string `json:"section_key_permission"` // text, null
	SchoolPermission     *string `json:"school_permission"`      // varchar(30), null
	DistrictID           *int    `json:"district_id"`            // int, null
}
