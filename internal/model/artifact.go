package model

import (
	"fmt"
	"regexp"
	"time"

	"workspace-service/internal/validation"
)

// Artifact kinds
const (
	KindEnvVar  = "ENV_VAR"
	KindPrompt  = "PROMPT"
	KindDocLink = "DOC_LINK"
)

// ArtifactKinds lists the supported kind discriminants
var ArtifactKinds = []string{KindEnvVar, KindPrompt, KindDocLink}

// IsValidKind reports whether kind is a supported discriminant
func IsValidKind(kind string) bool {
	for _, k := range ArtifactKinds {
		if k == kind {
			return true
		}
	}
	return false
}

// MaxPromptContentLen is the model-level content ceiling for PROMPT
// artifacts. The request layer accepts more; this rule wins at persistence
// time (kept from the system this was ported from, do not unify).
const MaxPromptContentLen = 10000

// Model-level key rule. Stricter than the request-level rule, which also
// accepts lowercase and hyphens.
var envVarKeyPattern = regexp.MustCompile(`^[A-Z0-9_]+$`)

// Metadata is a free-form JSON map stored alongside every artifact
type Metadata map[string]interface{}

// Artifact is a polymorphic record discriminated by Kind. All kind-specific
// columns exist on every row; only the subset for the row's kind is
// meaningful and exposed.
type Artifact struct {
	ID          uint   `json:"id" gorm:"primarykey"`
	WorkspaceID uint   `json:"workspace_id" gorm:"not null;index:idx_artifacts_workspace_kind;uniqueIndex:idx_artifacts_identity"`
	Kind        string `json:"kind" gorm:"type:varchar(20);not null;index;index:idx_artifacts_workspace_kind;uniqueIndex:idx_artifacts_identity"`

	// Environment slug kept denormalized for compatibility; WorkspaceEnvID
	// is the join-based reference and is preferred when set.
	Environment    string                `json:"environment" gorm:"type:varchar(20);default:DEV;uniqueIndex:idx_artifacts_identity"`
	WorkspaceEnvID *uint                 `json:"workspace_env_id" gorm:"index"`
	WorkspaceEnv   *WorkspaceEnvironment `json:"-"`

	Notes string `json:"notes" gorm:"type:text"`

	// ENV_VAR fields
	Key   string `json:"key" gorm:"type:varchar(255);uniqueIndex:idx_artifacts_identity"`
	Value string `json:"value" gorm:"type:text"`

	// PROMPT and DOC_LINK fields
	Title string `json:"title" gorm:"type:varchar(500);uniqueIndex:idx_artifacts_identity"`

	// PROMPT fields
	Content string `json:"content" gorm:"type:text"`

	// DOC_LINK fields
	URL string `json:"url" gorm:"type:varchar(2048)"`

	Metadata Metadata `json:"metadata" gorm:"serializer:json"`

	Workspace *Workspace `json:"-"`
	Tags      []Tag      `json:"-" gorm:"many2many:artifact_tags"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Validate applies kind-specific rules. It must be called before
// persistence; a non-nil result is a validation.FieldErrors keyed by the
// offending field.
func (a *Artifact) Validate() error {
	errs := validation.FieldErrors{}

	switch a.Kind {
	case KindEnvVar:
		if a.Key == "" {
			errs["key"] = "ENV_VAR requires a key"
		} else if !envVarKeyPattern.MatchString(a.Key) {
			errs["key"] = "ENV_VAR key must be uppercase alphanumeric with underscores"
		}
		if a.Value == "" {
			errs["value"] = "ENV_VAR requires a value"
		}
	case KindPrompt:
		if a.Title == "" {
			errs["title"] = "PROMPT requires a title"
		}
		if len(a.Content) > MaxPromptContentLen {
			errs["content"] = fmt.Sprintf("PROMPT content cannot exceed %d characters", MaxPromptContentLen)
		}
	case KindDocLink:
		if a.Title == "" {
			errs["title"] = "DOC_LINK requires a title"
		}
		if a.URL == "" {
			errs["url"] = "DOC_LINK requires a URL"
		}
	default:
		errs["kind"] = fmt.Sprintf("unsupported artifact kind: %s", a.Kind)
	}

	if len(errs) > 0 {
		return errs
	}
	return nil
}

// PrimaryIdentifier returns the key for ENV_VAR artifacts and the title
// for the other kinds.
func (a *Artifact) PrimaryIdentifier() string {
	if a.Kind == KindEnvVar {
		return a.Key
	}
	return a.Title
}

// EnvironmentSlug resolves the effective environment, preferring the
// workspace-environment join over the denormalized field.
func (a *Artifact) EnvironmentSlug() string {
	if a.WorkspaceEnv != nil && a.WorkspaceEnv.EnvironmentType != nil {
		return a.WorkspaceEnv.EnvironmentType.Slug
	}
	return a.Environment
}
