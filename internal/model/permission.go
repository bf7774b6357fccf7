package model

// Permission represents a string code for an action an API client may take.
type Permission string

const (
	// PermissionAnalyticsRead allows reading the analytics views.
	PermissionAnalyticsRead Permission = "analytics:read"

	// PermissionFixturesStage allows loading fixture rows into the view tables.
	PermissionFixturesStage Permission = "fixtures:stage"

	// PermissionVerificationsRun allows comparing fixtures against the views.
	PermissionVerificationsRun Permission = "verifications:run"
)

// AllPermissions is a slice of all available permissions.
var AllPermissions = []Permission{
	PermissionAnalyticsRead,
	PermissionFixturesStage,
	PermissionVerificationsRun,
}

// IsValidPermission reports whether code names a known permission.
func IsValidPermission(code string) bool {
	for _, p := range AllPermissions {
		if string(p) == code {
			return true
		}
	}
	return false
}
