package model

import (
	"time"
)

// Tag groups artifacts within a workspace. Name uniqueness per workspace is
// case-insensitive at validation time; the index backs the exact-case rule.
type Tag struct {
	ID          uint      `json:"id" gorm:"primarykey"`
	WorkspaceID uint      `json:"workspace_id" gorm:"not null;uniqueIndex:idx_tags_workspace_name"`
	Name        string    `json:"name" gorm:"type:varchar(80);not null;uniqueIndex:idx_tags_workspace_name"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// ArtifactTag is the explicit join between artifacts and tags. Deleting
// either side removes only join rows, never the other entity.
type ArtifactTag struct {
	ArtifactID uint      `json:"artifact_id" gorm:"primarykey"`
	TagID      uint      `json:"tag_id" gorm:"primarykey"`
	CreatedAt  time.Time `json:"created_at"`
}
