package modrinth

import (
	"context"
	"fmt"
	"net/url"

	"go.opentelemetry.io/otel/attribute"

	"github.com/meza/mod-reconciler/internal/httpclient"
	"github.com/meza/mod-reconciler/internal/models"
	"github.com/meza/mod-reconciler/internal/perf"
)

type ProjectStatus string
type ProjectType string

const (
	Approved ProjectStatus = "approved"
	Rejected ProjectStatus = "rejected"
	Pending  ProjectStatus = "pending"
)

const (
	Mod          ProjectType = "mod"
	Modpack      ProjectType = "modpack"
	ResourcePack ProjectType = "resourcepack"
	Datapack     ProjectType = "datapack"
	Shader       ProjectType = "shader"
)

type Project struct {
	ID           string          `json:"id"`
	Title        string          `json:"title"`
	Slug         string          `json:"slug"`
	Description  string          `json:"description"`
	Status       ProjectStatus   `json:"status"`
	Type         ProjectType     `json:"project_type"`
	GameVersions []string        `json:"game_versions"`
	Loaders      []models.Loader `json:"loaders"`
}

func GetProject(ctx context.Context, projectID string, client httpclient.Doer) (*Project, error) {
	ctx, span := perf.StartSpan(ctx, "api.modrinth.project.get", perf.WithAttributes(attribute.String("project_id", projectID)))
	defer span.End()

	project := &Project{}
	err := fetchProjectJSON(ctx, client, projectID, fmt.Sprintf("%s/v2/project/%s", GetBaseURL(), url.PathEscape(projectID)), project)
	if err != nil && !onlyCloseFailed(err) {
		return nil, err
	}
	return project, err
}
