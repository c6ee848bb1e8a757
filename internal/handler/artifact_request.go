package handler

import (
	"fmt"
	"sort"
	"strings"

	"workspace-service/internal/model"
	"workspace-service/internal/validation"

	"github.com/labstack/echo/v4"
	"gorm.io/gorm"
)

// maskToken replaces ENV_VAR values in every listing and detail response.
// The true value is only returned by the reveal action.
const maskToken = "••••••"

// ArtifactRequest defines the structure for artifact creation/update
// requests. Pointer fields distinguish "absent" from "empty" so the same
// shape serves PATCH.
type ArtifactRequest struct {
	Kind        string         `json:"kind"`
	Environment string         `json:"environment"`
	Notes       *string        `json:"notes"`
	Key         *string        `json:"key"`
	Value       *string        `json:"value"`
	Title       *string        `json:"title"`
	Content     *string        `json:"content"`
	URL         *string        `json:"url"`
	Label       *string        `json:"label"`
	Metadata    model.Metadata `json:"metadata"`
	Tags        *[]uint        `json:"tags"`
}

// sanitize cleans every provided field in place. Returns field-scoped
// errors for anything that fails its format or length rule.
func (r *ArtifactRequest) sanitize() validation.FieldErrors {
	errs := validation.FieldErrors{}

	clean := func(field string, p *string, fn func(string) (string, error)) {
		if p == nil {
			return
		}
		v, err := fn(*p)
		if err != nil {
			errs[field] = err.Error()
			return
		}
		*p = v
	}

	clean("key", r.Key, validation.SanitizeKey)
	clean("value", r.Value, validation.SanitizeValue)
	clean("title", r.Title, validation.SanitizeTitle)
	clean("content", r.Content, validation.SanitizeContent)
	clean("notes", r.Notes, validation.SanitizeNotes)
	clean("url", r.URL, validation.SanitizeURL)

	if len(errs) > 0 {
		return errs
	}
	return nil
}

func strOrEmpty(p *string) string {
	if p == nil {
		return ""
	}
	return *p
}

// identityColumn returns the column that scopes uniqueness for a kind
func identityColumn(kind string) string {
	if kind == model.KindEnvVar {
		return "key"
	}
	return "title"
}

// identityConflictMessage mirrors the per-kind duplicate wording
func identityConflictMessage(kind, identifier, environment string) string {
	switch kind {
	case model.KindEnvVar:
		return fmt.Sprintf("An environment variable with key '%s' already exists in %s environment.", identifier, environment)
	case model.KindPrompt:
		return fmt.Sprintf("A prompt with title '%s' already exists in %s environment.", identifier, environment)
	default:
		return fmt.Sprintf("A documentation link with title '%s' already exists in %s environment.", identifier, environment)
	}
}

// artifactIdentityExists checks the per-scope uniqueness rule: ENV_VAR key
// unique per (workspace, environment); PROMPT/DOC_LINK title unique per
// (workspace, kind, environment). excludeID skips the row being updated.
func artifactIdentityExists(db *gorm.DB, workspaceID uint, kind, identifier, environment string, excludeID uint) (bool, error) {
	if identifier == "" {
		return false, nil
	}

	query := db.Model(&model.Artifact{}).
		Where("workspace_id = ? AND kind = ? AND environment = ?", workspaceID, kind, environment).
		Where(identityColumn(kind)+" = ?", identifier)
	if excludeID != 0 {
		query = query.Where("id <> ?", excludeID)
	}

	var count int64
	if err := query.Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

// resolveWorkspaceEnv maps an environment slug to the workspace's enabled
// environment join, if any. Returns nil when the environment is not enabled;
// the legacy slug column still records the target in that case.
func resolveWorkspaceEnv(db *gorm.DB, workspaceID uint, slug string) *uint {
	var we model.WorkspaceEnvironment
	err := db.
		Joins("JOIN environment_types ON environment_types.id = workspace_environments.environment_type_id").
		Where("workspace_environments.workspace_id = ? AND environment_types.slug = ?", workspaceID, slug).
		First(&we).Error
	if err != nil {
		return nil
	}
	return &we.ID
}

// loadWorkspaceTags fetches the requested tags, requiring all of them to
// belong to the given workspace.
func loadWorkspaceTags(db *gorm.DB, workspaceID uint, ids []uint) ([]model.Tag, validation.FieldErrors, error) {
	if len(ids) == 0 {
		return nil, nil, nil
	}

	var tags []model.Tag
	if err := db.Where("workspace_id = ? AND id IN ?", workspaceID, ids).Find(&tags).Error; err != nil {
		return nil, nil, err
	}

	if len(tags) != len(uniqueIDs(ids)) {
		found := make(map[uint]bool, len(tags))
		for _, t := range tags {
			found[t.ID] = true
		}
		var invalid []uint
		for _, id := range uniqueIDs(ids) {
			if !found[id] {
				invalid = append(invalid, id)
			}
		}
		return nil, validation.FieldErrors{
			"tags": fmt.Sprintf("Tags must belong to the same workspace. Invalid tags: %v", invalid),
		}, nil
	}

	return tags, nil, nil
}

func uniqueIDs(ids []uint) []uint {
	seen := make(map[uint]bool, len(ids))
	out := make([]uint, 0, len(ids))
	for _, id := range ids {
		if !seen[id] {
			seen[id] = true
			out = append(out, id)
		}
	}
	return out
}

// buildArtifact assembles a model from a request, keeping only the fields
// relevant to the kind and folding the DOC_LINK label into metadata.
func buildArtifact(workspaceID uint, req *ArtifactRequest) *model.Artifact {
	artifact := &model.Artifact{
		WorkspaceID: workspaceID,
		Kind:        req.Kind,
		Environment: req.Environment,
		Notes:       strOrEmpty(req.Notes),
		Metadata:    req.Metadata,
	}
	if artifact.Metadata == nil {
		artifact.Metadata = model.Metadata{}
	}

	switch req.Kind {
	case model.KindEnvVar:
		artifact.Key = strOrEmpty(req.Key)
		artifact.Value = strOrEmpty(req.Value)
	case model.KindPrompt:
		artifact.Title = strOrEmpty(req.Title)
		artifact.Content = strOrEmpty(req.Content)
	case model.KindDocLink:
		artifact.Title = strOrEmpty(req.Title)
		artifact.URL = strOrEmpty(req.URL)
		if req.Label != nil {
			artifact.Metadata["label"] = strings.TrimSpace(*req.Label)
		}
	}

	return artifact
}

// createArtifactInWorkspace runs the full write path for one artifact:
// sanitize, kind validation, uniqueness pre-check, environment resolution,
// tag scoping, and the insert itself. Field errors are the caller's 400
// payload; err is an infrastructure failure.
func createArtifactInWorkspace(db *gorm.DB, workspace *model.Workspace, req *ArtifactRequest) (*model.Artifact, validation.FieldErrors, error) {
	if !model.IsValidKind(req.Kind) {
		return nil, validation.FieldErrors{"kind": fmt.Sprintf("unsupported artifact kind: %s", req.Kind)}, nil
	}

	if req.Environment == "" {
		req.Environment = model.EnvDev
	}
	req.Environment = strings.ToUpper(req.Environment)
	if !model.IsValidEnvironment(req.Environment) {
		return nil, validation.FieldErrors{"environment": "Invalid environment. Must be DEV, STAGING, or PROD"}, nil
	}

	if errs := req.sanitize(); errs != nil {
		return nil, errs, nil
	}

	artifact := buildArtifact(workspace.ID, req)
	if err := artifact.Validate(); err != nil {
		return nil, err.(validation.FieldErrors), nil
	}

	exists, err := artifactIdentityExists(db, workspace.ID, artifact.Kind, artifact.PrimaryIdentifier(), artifact.Environment, 0)
	if err != nil {
		return nil, nil, err
	}
	if exists {
		field := identityColumn(artifact.Kind)
		return nil, validation.FieldErrors{
			field: identityConflictMessage(artifact.Kind, artifact.PrimaryIdentifier(), artifact.Environment),
		}, nil
	}

	var tags []model.Tag
	if req.Tags != nil {
		var fieldErrs validation.FieldErrors
		tags, fieldErrs, err = loadWorkspaceTags(db, workspace.ID, *req.Tags)
		if err != nil {
			return nil, nil, err
		}
		if fieldErrs != nil {
			return nil, fieldErrs, nil
		}
	}

	artifact.WorkspaceEnvID = resolveWorkspaceEnv(db, workspace.ID, artifact.Environment)

	err = db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(artifact).Error; err != nil {
			return err
		}
		for _, tag := range tags {
			join := model.ArtifactTag{ArtifactID: artifact.ID, TagID: tag.ID}
			if err := tx.Create(&join).Error; err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, nil, err
	}

	artifact.Tags = tags
	artifact.Workspace = workspace
	return artifact, nil, nil
}

// artifactResponse renders the kind-specific external representation.
// Fields irrelevant to the kind are omitted and ENV_VAR values are masked.
func artifactResponse(a *model.Artifact) echo.Map {
	metadata := a.Metadata
	if metadata == nil {
		metadata = model.Metadata{}
	}

	tags := append([]model.Tag(nil), a.Tags...)
	sort.Slice(tags, func(i, j int) bool { return tags[i].Name < tags[j].Name })

	tagIDs := make([]uint, 0, len(tags))
	tagObjects := make([]echo.Map, 0, len(tags))
	for _, t := range tags {
		tagIDs = append(tagIDs, t.ID)
		tagObjects = append(tagObjects, echo.Map{"id": t.ID, "name": t.Name})
	}

	resp := echo.Map{
		"id":          a.ID,
		"workspace":   a.WorkspaceID,
		"kind":        a.Kind,
		"environment": a.Environment,
		"created_at":  a.CreatedAt,
		"updated_at":  a.UpdatedAt,
		"notes":       a.Notes,
		"metadata":    metadata,
		"tags":        tagIDs,
		"tag_objects": tagObjects,
	}
	if a.Workspace != nil {
		resp["workspace_name"] = a.Workspace.Name
	}

	switch a.Kind {
	case model.KindEnvVar:
		resp["key"] = a.Key
		if a.Value != "" {
			resp["value"] = maskToken
			resp["value_masked"] = true
		} else {
			resp["value"] = ""
			resp["value_masked"] = false
		}
	case model.KindPrompt:
		resp["title"] = a.Title
		resp["content"] = a.Content
	case model.KindDocLink:
		resp["title"] = a.Title
		resp["url"] = a.URL
		if label, ok := metadata["label"].(string); ok && label != "" {
			resp["label"] = label
		}
	}

	return resp
}
