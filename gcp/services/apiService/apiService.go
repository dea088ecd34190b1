package apiservice

import (
	"context"
	"fmt"

	"github.com/cloudinv/cloudinv/globals"
	"github.com/cloudinv/cloudinv/internal/gcloud"
)

// API enablement classifications. Exactly "ENABLED" from the service listing
// maps to OK; any other listing text means the API is missing from the
// project. Failures map by kind, never by which API was being checked.
const (
	StatusOK              = "OK"
	StatusMissing         = "MISSING"
	StatusCredentialIssue = "CREDENTIAL_ISSUE"
	StatusError           = "ERROR"
)

// APIStatusInfo is the enablement status of one API on one project.
type APIStatusInfo struct {
	ProjectID string `json:"project_id"`
	APIID     string `json:"api_id"`
	APIName   string `json:"api_name"`
	Status    string `json:"status"`
}

type APIService struct {
	Client *gcloud.Client
}

func New(client *gcloud.Client) *APIService {
	return &APIService{Client: client}
}

// CheckAPI determines whether a single API is enabled on a project. One
// listing call, no retries; a transient failure classifies as ERROR for this
// API only.
func (s *APIService) CheckAPI(ctx context.Context, projectID string, apiID string) string {
	state, err := s.Client.RunText(ctx,
		"services", "list",
		"--project", projectID,
		"--filter", fmt.Sprintf("config.name:%s", apiID),
		"--format=value(state)",
		"--quiet",
	)
	if err != nil {
		return classifyFailure(err)
	}
	if state == "ENABLED" {
		return StatusOK
	}
	return StatusMissing
}

func classifyFailure(err error) string {
	if gcloud.IsPermissionDenied(err) {
		return StatusCredentialIssue
	}
	return StatusError
}

// CheckProject checks every API in the required catalog, in catalog order.
// The returned set is always complete: one entry per catalog API.
func (s *APIService) CheckProject(ctx context.Context, projectID string) []APIStatusInfo {
	statuses := make([]APIStatusInfo, 0, len(globals.GCP_REQUIRED_APIS))
	for _, api := range globals.GCP_REQUIRED_APIS {
		statuses = append(statuses, APIStatusInfo{
			ProjectID: projectID,
			APIID:     api.ID,
			APIName:   api.Name,
			Status:    s.CheckAPI(ctx, projectID, api.ID),
		})
	}
	return statuses
}

// StatusFor returns the status recorded for apiID on projectID, or ERROR if
// the pair is absent from the set.
func StatusFor(statuses []APIStatusInfo, projectID string, apiID string) string {
	for _, status := range statuses {
		if status.ProjectID == projectID && status.APIID == apiID {
			return status.Status
		}
	}
	return StatusError
}
