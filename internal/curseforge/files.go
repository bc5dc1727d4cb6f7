package curseforge

import (
	"context"
	"fmt"
	"strconv"

	"go.opentelemetry.io/otel/attribute"

	"github.com/meza/mod-reconciler/internal/globalerrors"
	"github.com/meza/mod-reconciler/internal/httpclient"
	"github.com/meza/mod-reconciler/internal/models"
	"github.com/meza/mod-reconciler/internal/perf"
)

type filesPage struct {
	Data       []File     `json:"data"`
	Pagination Pagination `json:"pagination"`
}

// more reports whether another page follows one that started at index.
func (page filesPage) more(index int) bool {
	count := page.Pagination.ResultCount
	return count > 0 && index+count < page.Pagination.TotalCount
}

// GetFilesForProject walks every page of the project's file listing. CurseForge
// ids are numeric, so anything else is reported as not found without a call.
func GetFilesForProject(ctx context.Context, projectID string, client httpclient.Doer) ([]File, error) {
	if _, err := strconv.Atoi(projectID); err != nil {
		return nil, &globalerrors.ProjectNotFoundError{ProjectID: projectID, Platform: models.CURSEFORGE}
	}

	ctx, span := perf.StartSpan(ctx, "api.curseforge.project.files.list", perf.WithAttributes(attribute.String("project_id", projectID)))
	defer span.End()

	var files []File
	for index := 0; ; {
		var page filesPage
		url := fmt.Sprintf("%s/mods/%s/files?index=%d", GetBaseURL(), projectID, index)
		if err := getProjectJSON(ctx, client, projectID, url, &page); err != nil {
			return nil, err
		}

		files = append(files, page.Data...)
		if !page.more(index) {
			break
		}
		index += page.Pagination.ResultCount
	}

	span.SetAttributes(attribute.Int("files", len(files)))
	return files, nil
}
