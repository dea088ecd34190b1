package gcp

import (
	"context"
	"fmt"
	"time"

	apiservice "github.com/cloudinv/cloudinv/gcp/services/apiService"
	bigqueryservice "github.com/cloudinv/cloudinv/gcp/services/bigqueryService"
	computeengineservice "github.com/cloudinv/cloudinv/gcp/services/computeEngineService"
	containerservice "github.com/cloudinv/cloudinv/gcp/services/containerService"
	sqlservice "github.com/cloudinv/cloudinv/gcp/services/sqlService"
	"github.com/cloudinv/cloudinv/globals"
	"github.com/cloudinv/cloudinv/internal"
	"github.com/cloudinv/cloudinv/internal/gcloud"
)

// Project is one entry from project discovery. Discovered, never mutated.
type Project struct {
	ProjectID      string `json:"projectId"`
	Name           string `json:"name"`
	ProjectNumber  string `json:"projectNumber"`
	LifecycleState string `json:"lifecycleState"`
	CreateTime     string `json:"createTime"`
}

// SkippedCollection records one project/kind pair skipped because its API was
// not usable, as opposed to a genuine empty listing.
type SkippedCollection struct {
	ProjectID string `json:"project_id"`
	Resource  string `json:"resource"`
	APIStatus string `json:"api_status"`
}

// InventoryResult aggregates one run. Assembled incrementally, frozen once
// export begins. Ordering is project discovery order crossed with the fixed
// kind order: VMs, SQL, BigQuery, GKE.
type InventoryResult struct {
	// Aborted is set when the operator declined to proceed after the gate
	// results were shown. An aborted run exports nothing.
	Aborted bool `json:"-"`

	Timestamp        time.Time                                `json:"timestamp"`
	APIStatus        []apiservice.APIStatusInfo               `json:"api_status"`
	VMs              []computeengineservice.ComputeEngineInfo `json:"vms"`
	SQLInstances     []sqlservice.SQLInstanceInfo             `json:"sql_instances"`
	BigQueryDatasets []bigqueryservice.BigQueryDatasetInfo    `json:"bigquery_datasets"`
	GKEClusters      []containerservice.GKEClusterInfo        `json:"gke_clusters"`
	Skipped          []SkippedCollection                      `json:"skipped,omitempty"`
}

// Empty reports whether the run collected no resources of any kind.
func (r *InventoryResult) Empty() bool {
	return len(r.VMs) == 0 && len(r.SQLInstances) == 0 && len(r.BigQueryDatasets) == 0 && len(r.GKEClusters) == 0
}

// Options selects what one run collects.
type Options struct {
	// ProjectID limits the run to one project. Empty means discover all
	// accessible projects. No existence check is done here; a bad id shows
	// up on the first collector call.
	ProjectID        string
	SkipDisabledAPIs bool
	IncludeVMs       bool
	IncludeSQL       bool
	IncludeBigQuery  bool
	IncludeGKE       bool

	// OnAPIStatus, when set, is invoked with the complete gate results
	// before any collection starts. Returning false aborts the run with an
	// empty result; the CLI uses this for its confirmation prompt.
	OnAPIStatus func(statuses []apiservice.APIStatusInfo) bool
}

// InventoryService drives one collection run: project discovery, API gating,
// the collectors in fixed order, and aggregation. A failure in one
// project/kind pair never stops the rest of the run.
type InventoryService struct {
	Client    *gcloud.Client
	API       *apiservice.APIService
	Compute   *computeengineservice.ComputeEngineService
	SQL       *sqlservice.SQLService
	BigQuery  *bigqueryservice.BigQueryService
	Container *containerservice.ContainerService
	Exporter  *internal.ExportClient
	Logger    internal.Logger
	Now       func() time.Time
}

func NewInventoryService(client *gcloud.Client) *InventoryService {
	return &InventoryService{
		Client:    client,
		API:       apiservice.New(client),
		Compute:   computeengineservice.New(client),
		SQL:       sqlservice.New(client),
		BigQuery:  bigqueryservice.New(),
		Container: containerservice.New(client),
		Exporter:  internal.NewExportClient(),
		Logger:    internal.NewLogger(),
		Now:       time.Now,
	}
}

// Projects discovers all accessible projects. Zero projects is a legitimate
// empty result, not an error.
func (s *InventoryService) Projects(ctx context.Context) ([]Project, error) {
	var projects []Project
	err := s.Client.RunJSON(ctx, &projects, "projects", "list", "--format=json", "--quiet")
	if err != nil {
		return nil, err
	}
	return projects, nil
}

func (s *InventoryService) resolveProjects(ctx context.Context, opts Options) ([]string, error) {
	if opts.ProjectID != "" {
		return []string{opts.ProjectID}, nil
	}
	projects, err := s.Projects(ctx)
	if err != nil {
		return nil, err
	}
	projectIDs := make([]string, 0, len(projects))
	for _, project := range projects {
		projectIDs = append(projectIDs, project.ProjectID)
	}
	return projectIDs, nil
}

// CheckAPIs gates every resolved project against the required API catalog.
// Each project's status set is complete; a project whose enumeration failed
// upstream is entirely absent.
func (s *InventoryService) CheckAPIs(ctx context.Context, opts Options) ([]apiservice.APIStatusInfo, error) {
	projectIDs, err := s.resolveProjects(ctx, opts)
	if err != nil {
		return nil, err
	}

	var statuses []apiservice.APIStatusInfo
	for _, projectID := range projectIDs {
		s.Logger.InfoM(fmt.Sprintf("Checking API status for project: %s", projectID), globals.GCP_CHECK_APIS_MODULE_NAME)
		statuses = append(statuses, s.API.CheckProject(ctx, projectID)...)
	}
	return statuses, nil
}

// Collect runs the full inventory. The returned error is non-nil only for
// run-fatal conditions: project discovery failure or credential activation
// failure. Everything else degrades to empty or skipped contributions.
func (s *InventoryService) Collect(ctx context.Context, opts Options) (*InventoryResult, error) {
	projectIDs, err := s.resolveProjects(ctx, opts)
	if err != nil {
		return nil, err
	}

	result := &InventoryResult{Timestamp: s.Now()}
	if len(projectIDs) == 0 {
		s.Logger.WarnM("No projects found or unable to access project list.", globals.GCP_INVENTORY_MODULE_NAME)
		return result, nil
	}

	for _, projectID := range projectIDs {
		s.Logger.InfoM(fmt.Sprintf("Checking API status for project: %s", projectID), globals.GCP_INVENTORY_MODULE_NAME)
		result.APIStatus = append(result.APIStatus, s.API.CheckProject(ctx, projectID)...)
	}

	if opts.OnAPIStatus != nil && !opts.OnAPIStatus(result.APIStatus) {
		s.Logger.InfoM("Run aborted before collection.", globals.GCP_INVENTORY_MODULE_NAME)
		result.Aborted = true
		return result, nil
	}

	for _, projectID := range projectIDs {
		if err := s.collectProject(ctx, opts, projectID, result); err != nil {
			return result, err
		}
	}

	return result, nil
}

// collectProject runs the enabled collectors for one project, in declared
// order. Only an auth failure propagates; it poisons every later call so the
// run stops.
func (s *InventoryService) collectProject(ctx context.Context, opts Options, projectID string, result *InventoryResult) error {
	if opts.IncludeVMs {
		s.Logger.InfoM(fmt.Sprintf("Collecting VM data for project: %s", projectID), globals.GCP_VMS_MODULE_NAME)
		records, err := s.Compute.Instances(ctx, projectID)
		if fatal := s.recordOutcome(opts, result, projectID, globals.GCP_VMS_MODULE_NAME, "compute.googleapis.com", len(records), err); fatal != nil {
			return fatal
		}
		result.VMs = append(result.VMs, records...)
	}

	if opts.IncludeSQL {
		s.Logger.InfoM(fmt.Sprintf("Collecting SQL data for project: %s", projectID), globals.GCP_SQL_MODULE_NAME)
		records, err := s.SQL.Instances(ctx, projectID)
		if fatal := s.recordOutcome(opts, result, projectID, globals.GCP_SQL_MODULE_NAME, "sqladmin.googleapis.com", len(records), err); fatal != nil {
			return fatal
		}
		result.SQLInstances = append(result.SQLInstances, records...)
	}

	if opts.IncludeBigQuery {
		s.Logger.InfoM(fmt.Sprintf("Collecting BigQuery data for project: %s", projectID), globals.GCP_BIGQUERY_MODULE_NAME)
		records, err := s.BigQuery.Datasets(ctx, projectID)
		if fatal := s.recordOutcome(opts, result, projectID, globals.GCP_BIGQUERY_MODULE_NAME, "bigquery.googleapis.com", len(records), err); fatal != nil {
			return fatal
		}
		result.BigQueryDatasets = append(result.BigQueryDatasets, records...)
	}

	if opts.IncludeGKE {
		s.Logger.InfoM(fmt.Sprintf("Collecting GKE data for project: %s", projectID), globals.GCP_GKE_MODULE_NAME)
		records, err := s.Container.Clusters(ctx, projectID)
		if fatal := s.recordOutcome(opts, result, projectID, globals.GCP_GKE_MODULE_NAME, "container.googleapis.com", len(records), err); fatal != nil {
			return fatal
		}
		result.GKEClusters = append(result.GKEClusters, records...)
	}

	return nil
}

// recordOutcome applies the gating policy to one project/kind outcome. A
// failed or empty listing on a project whose API status is not OK becomes a
// skip under SkipDisabledAPIs; otherwise it is a warning, never fatal. The
// API status used here was computed before collection started; the window
// between the two calls is accepted, not re-verified.
func (s *InventoryService) recordOutcome(opts Options, result *InventoryResult, projectID string, module string, apiID string, recordCount int, err error) error {
	if err != nil && gcloud.IsAuthFailure(err) {
		s.Logger.ErrorM(fmt.Sprintf("Credential activation failed: %s", err), module)
		return err
	}

	apiStatus := apiservice.StatusFor(result.APIStatus, projectID, apiID)

	if err != nil {
		if opts.SkipDisabledAPIs && apiStatus != apiservice.StatusOK {
			s.Logger.InfoM(fmt.Sprintf("Skipping project: %s (API status %s)", projectID, apiStatus), module)
			result.Skipped = append(result.Skipped, SkippedCollection{ProjectID: projectID, Resource: module, APIStatus: apiStatus})
			return nil
		}
		s.Logger.WarnM(fmt.Sprintf("Could not determine %s data for project %s: %s", module, projectID, err), module)
		return nil
	}

	if recordCount == 0 {
		if opts.SkipDisabledAPIs && apiStatus != apiservice.StatusOK {
			s.Logger.InfoM(fmt.Sprintf("Skipping project: %s (possibly due to disabled API)", projectID), module)
			result.Skipped = append(result.Skipped, SkippedCollection{ProjectID: projectID, Resource: module, APIStatus: apiStatus})
			return nil
		}
		s.Logger.WarnM(fmt.Sprintf("No %s data found for project: %s or API access issue", module, projectID), module)
	}
	return nil
}
