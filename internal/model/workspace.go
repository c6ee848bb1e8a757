package model

import (
	"time"
)

// Workspace is the top-level container for artifacts and tags, owned by a
// single external identity (opaque UID from the identity provider).
type Workspace struct {
	ID          uint      `json:"id" gorm:"primarykey"`
	Name        string    `json:"name" gorm:"type:varchar(255);not null;uniqueIndex:idx_workspaces_owner_name"`
	Description string    `json:"description" gorm:"type:text"`
	OwnerUID    string    `json:"owner_uid" gorm:"type:varchar(128);not null;index;uniqueIndex:idx_workspaces_owner_name"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}
