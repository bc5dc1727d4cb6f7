package curseforge

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel/attribute"

	"github.com/meza/mod-reconciler/internal/httpclient"
	"github.com/meza/mod-reconciler/internal/perf"
)

type getProjectResponse struct {
	Data Project `json:"data"`
}

// GetProject fetches /mods/{id}. A body that decoded but failed to close is
// still returned alongside the error.
func GetProject(ctx context.Context, projectID string, client httpclient.Doer) (*Project, error) {
	ctx, span := perf.StartSpan(ctx, "api.curseforge.project.get", perf.WithAttributes(attribute.String("project_id", projectID)))
	defer span.End()

	var payload getProjectResponse
	err := getProjectJSON(ctx, client, projectID, fmt.Sprintf("%s/mods/%s", GetBaseURL(), projectID), &payload)
	if err != nil && !isCloseError(err) {
		return nil, err
	}
	return &payload.Data, err
}
