package model

// Environment slugs. The reference set is seeded at startup and treated as
// immutable lookup data.
const (
	EnvDev     = "DEV"
	EnvStaging = "STAGING"
	EnvProd    = "PROD"
)

// EnvironmentSlugs lists the canonical environment slugs in display order
var EnvironmentSlugs = []string{EnvDev, EnvStaging, EnvProd}

// IsValidEnvironment reports whether slug belongs to the canonical set
func IsValidEnvironment(slug string) bool {
	for _, s := range EnvironmentSlugs {
		if s == slug {
			return true
		}
	}
	return false
}

// EnvironmentType is the master list of environments a workspace can enable
type EnvironmentType struct {
	ID           uint   `json:"id" gorm:"primarykey"`
	Name         string `json:"name" gorm:"type:varchar(50);not null;unique"`
	Slug         string `json:"slug" gorm:"type:varchar(20);not null;unique"`
	DisplayOrder int    `json:"display_order" gorm:"default:0"`
}

// WorkspaceEnvironment joins a workspace to an enabled environment type.
// The pair is unique; removing a row is guarded by the artifact check in
// the enabled-environments endpoint.
type WorkspaceEnvironment struct {
	ID                uint             `json:"id" gorm:"primarykey"`
	WorkspaceID       uint             `json:"workspace_id" gorm:"not null;uniqueIndex:idx_workspace_environment_pair"`
	EnvironmentTypeID uint             `json:"environment_type_id" gorm:"not null;uniqueIndex:idx_workspace_environment_pair"`
	EnvironmentType   *EnvironmentType `json:"environment_type,omitempty"`
}
