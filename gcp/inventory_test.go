package gcp_test

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"strings"
	"testing"
	"time"

	"cloud.google.com/go/bigquery"
	"github.com/spf13/afero"
	"google.golang.org/api/iterator"

	"github.com/cloudinv/cloudinv/gcp"
	apiservice "github.com/cloudinv/cloudinv/gcp/services/apiService"
	bigqueryservice "github.com/cloudinv/cloudinv/gcp/services/bigqueryService"
	"github.com/cloudinv/cloudinv/globals"
	"github.com/cloudinv/cloudinv/internal"
	"github.com/cloudinv/cloudinv/internal/gcloud"
)

type mockResponse struct {
	stdout string
	stderr string
	err    error
}

type mockExecutor struct {
	responses map[string]mockResponse
	calls     []string
}

func (m *mockExecutor) Run(ctx context.Context, name string, args ...string) (string, string, error) {
	key := strings.Join(args, " ")
	m.calls = append(m.calls, key)
	if response, ok := m.responses[key]; ok {
		return response.stdout, response.stderr, response.err
	}
	return "", "", fmt.Errorf("unexpected command: %s", key)
}

func (m *mockExecutor) called(prefix string) bool {
	for _, call := range m.calls {
		if strings.HasPrefix(call, prefix) {
			return true
		}
	}
	return false
}

const projectsListKey = "projects list --format=json --quiet"

func servicesListKey(projectID string, apiID string) string {
	return fmt.Sprintf("services list --project %s --filter config.name:%s --format=value(state) --quiet", projectID, apiID)
}

func instancesListKey(projectID string) string {
	return fmt.Sprintf("compute instances list --project %s --format=json --quiet", projectID)
}

func machineTypeKey(projectID string, zone string, machineType string) string {
	return fmt.Sprintf("compute machine-types describe %s --project %s --zone %s --format=json --quiet", machineType, projectID, zone)
}

func sqlListKey(projectID string) string {
	return fmt.Sprintf("sql instances list --project %s --format=json --quiet", projectID)
}

func clustersListKey(projectID string) string {
	return fmt.Sprintf("container clusters list --project %s --format=json --quiet", projectID)
}

// allAPIsEnabled seeds ENABLED gate responses for every required API.
func allAPIsEnabled(responses map[string]mockResponse, projectIDs ...string) {
	for _, projectID := range projectIDs {
		for _, api := range globals.GCP_REQUIRED_APIS {
			responses[servicesListKey(projectID, api.ID)] = mockResponse{stdout: "ENABLED"}
		}
	}
}

type doneIterator struct{}

func (doneIterator) Next() (string, error) { return "", iterator.Done }

type emptyBigQueryClient struct{}

func (emptyBigQueryClient) DatasetIDs(ctx context.Context) bigqueryservice.IDIterator {
	return doneIterator{}
}

func (emptyBigQueryClient) DatasetMetadata(ctx context.Context, datasetID string) (*bigquery.DatasetMetadata, error) {
	return nil, errors.New("no datasets")
}

func (emptyBigQueryClient) TableIDs(ctx context.Context, datasetID string) bigqueryservice.IDIterator {
	return doneIterator{}
}

func (emptyBigQueryClient) TableMetadata(ctx context.Context, datasetID string, tableID string) (*bigquery.TableMetadata, error) {
	return nil, errors.New("no tables")
}

func (emptyBigQueryClient) Close() error { return nil }

func newTestService(executor *mockExecutor, clientOpts ...gcloud.Option) *gcp.InventoryService {
	opts := append([]gcloud.Option{gcloud.WithExecutor(executor)}, clientOpts...)
	service := gcp.NewInventoryService(gcloud.NewClient(opts...))
	service.BigQuery = &bigqueryservice.BigQueryService{
		NewClient: func(ctx context.Context, projectID string) (bigqueryservice.Client, error) {
			return emptyBigQueryClient{}, nil
		},
	}
	service.Exporter = &internal.ExportClient{
		FS:  afero.NewMemMapFs(),
		Now: func() time.Time { return time.Date(2024, 6, 15, 10, 4, 5, 0, time.UTC) },
	}
	service.Now = func() time.Time { return time.Date(2024, 6, 15, 10, 4, 5, 0, time.UTC) }
	return service
}

func allKindsOptions() gcp.Options {
	return gcp.Options{
		IncludeVMs:      true,
		IncludeSQL:      true,
		IncludeBigQuery: true,
		IncludeGKE:      true,
	}
}

func mixedFleetResponses() map[string]mockResponse {
	responses := map[string]mockResponse{
		projectsListKey: {stdout: `[
		  {"projectId": "proj-populated", "name": "Populated", "projectNumber": "111", "lifecycleState": "ACTIVE"},
		  {"projectId": "proj-empty", "name": "Empty", "projectNumber": "222", "lifecycleState": "ACTIVE"}
		]`},
		instancesListKey("proj-populated"): {stdout: `[
		  {
		    "id": "42",
		    "name": "web-1",
		    "zone": "zones/us-central1-a",
		    "status": "RUNNING",
		    "machineType": "machineTypes/e2-medium",
		    "disks": [{"boot": true, "licenses": ["licenses/debian-11"]}]
		  }
		]`},
		machineTypeKey("proj-populated", "us-central1-a", "e2-medium"): {stdout: `{"guestCpus": 2, "memoryMb": 7680}`},
		sqlListKey("proj-populated"):       {stdout: "[]"},
		clustersListKey("proj-populated"):  {stdout: "[]"},
		instancesListKey("proj-empty"):     {stdout: "[]"},
		sqlListKey("proj-empty"):           {stdout: "[]"},
		clustersListKey("proj-empty"):      {stdout: "[]"},
	}
	allAPIsEnabled(responses, "proj-populated", "proj-empty")
	return responses
}

func TestCollectAcrossMixedFleet(t *testing.T) {
	executor := &mockExecutor{responses: mixedFleetResponses()}
	service := newTestService(executor)

	result, err := service.Collect(context.Background(), allKindsOptions())
	if err != nil {
		t.Fatalf("Collect() error = %v", err)
	}

	if len(result.VMs) != 1 {
		t.Fatalf("Collect() found %d VMs, want 1", len(result.VMs))
	}
	vm := result.VMs[0]
	if vm.ProjectID != "proj-populated" || vm.Name != "web-1" {
		t.Errorf("VM = %+v, want web-1 in proj-populated", vm)
	}
	if vm.CPUCount != 2 || vm.MemoryMB != 7680 {
		t.Errorf("VM enrichment = %d CPUs / %d MB, want 2/7680", vm.CPUCount, vm.MemoryMB)
	}
	if vm.OS != "debian-11" {
		t.Errorf("VM OS = %q, want debian-11", vm.OS)
	}

	if len(result.SQLInstances) != 0 || len(result.BigQueryDatasets) != 0 || len(result.GKEClusters) != 0 {
		t.Errorf("empty kinds populated: %d SQL, %d BQ, %d GKE",
			len(result.SQLInstances), len(result.BigQueryDatasets), len(result.GKEClusters))
	}
	if len(result.Skipped) != 0 {
		t.Errorf("Skipped = %+v, want none without --skip-disabled-apis", result.Skipped)
	}
	if want := len(globals.GCP_REQUIRED_APIS) * 2; len(result.APIStatus) != want {
		t.Errorf("APIStatus has %d entries, want %d (complete set per project)", len(result.APIStatus), want)
	}
}

func TestCollectIsIdempotent(t *testing.T) {
	first := newTestService(&mockExecutor{responses: mixedFleetResponses()})
	second := newTestService(&mockExecutor{responses: mixedFleetResponses()})
	second.Now = func() time.Time { return time.Date(2024, 6, 16, 8, 0, 0, 0, time.UTC) }

	resultA, err := first.Collect(context.Background(), allKindsOptions())
	if err != nil {
		t.Fatalf("first Collect() error = %v", err)
	}
	resultB, err := second.Collect(context.Background(), allKindsOptions())
	if err != nil {
		t.Fatalf("second Collect() error = %v", err)
	}

	if resultA.Timestamp.Equal(resultB.Timestamp) {
		t.Fatalf("timestamps should differ between runs")
	}
	resultA.Timestamp = time.Time{}
	resultB.Timestamp = time.Time{}
	if !reflect.DeepEqual(resultA, resultB) {
		t.Errorf("results differ beyond Timestamp:\nfirst:  %+v\nsecond: %+v", resultA, resultB)
	}
}

func TestCollectRecordsSkipsUnderSkipDisabledAPIs(t *testing.T) {
	responses := map[string]mockResponse{
		sqlListKey("proj-locked"): {stderr: "PERMISSION_DENIED", err: errors.New("exit status 1")},
	}
	allAPIsEnabled(responses, "proj-locked")
	responses[servicesListKey("proj-locked", "sqladmin.googleapis.com")] = mockResponse{
		stderr: "PERMISSION_DENIED", err: errors.New("exit status 1"),
	}

	executor := &mockExecutor{responses: responses}
	service := newTestService(executor)

	opts := gcp.Options{ProjectID: "proj-locked", SkipDisabledAPIs: true, IncludeSQL: true}
	result, err := service.Collect(context.Background(), opts)
	if err != nil {
		t.Fatalf("Collect() error = %v", err)
	}

	want := []gcp.SkippedCollection{
		{ProjectID: "proj-locked", Resource: globals.GCP_SQL_MODULE_NAME, APIStatus: apiservice.StatusCredentialIssue},
	}
	if !reflect.DeepEqual(result.Skipped, want) {
		t.Errorf("Skipped = %+v, want %+v", result.Skipped, want)
	}
	if len(result.SQLInstances) != 0 {
		t.Errorf("SQLInstances = %+v, want none for a skipped pair", result.SQLInstances)
	}
}

func TestCollectFailedListingWithoutSkipIsAWarning(t *testing.T) {
	responses := map[string]mockResponse{
		sqlListKey("proj-locked"): {stderr: "PERMISSION_DENIED", err: errors.New("exit status 1")},
	}
	allAPIsEnabled(responses, "proj-locked")

	service := newTestService(&mockExecutor{responses: responses})
	opts := gcp.Options{ProjectID: "proj-locked", IncludeSQL: true}

	result, err := service.Collect(context.Background(), opts)
	if err != nil {
		t.Fatalf("Collect() error = %v", err)
	}
	if len(result.Skipped) != 0 {
		t.Errorf("Skipped = %+v, want none without --skip-disabled-apis", result.Skipped)
	}
}

func TestCollectAbortsWhenCallbackDeclines(t *testing.T) {
	executor := &mockExecutor{responses: mixedFleetResponses()}
	service := newTestService(executor)

	var seen []apiservice.APIStatusInfo
	opts := allKindsOptions()
	opts.OnAPIStatus = func(statuses []apiservice.APIStatusInfo) bool {
		seen = statuses
		return false
	}

	result, err := service.Collect(context.Background(), opts)
	if err != nil {
		t.Fatalf("Collect() error = %v", err)
	}
	if len(seen) == 0 {
		t.Fatalf("callback never saw the gate results")
	}
	if !result.Empty() {
		t.Errorf("declined run still collected resources: %s", result.Summary())
	}
	if !result.Aborted {
		t.Errorf("declined run not marked aborted")
	}
	if executor.called("compute instances list") {
		t.Errorf("collection ran despite the callback declining")
	}

	// Gate statuses were recorded, but a cancelled run must leave no files.
	paths, err := service.Export(result, "output", gcp.FormatAll)
	if err != nil {
		t.Fatalf("Export() error = %v", err)
	}
	if len(paths) != 0 {
		t.Errorf("declined run still exported %d files: %v", len(paths), paths)
	}
	exists, err := afero.DirExists(service.Exporter.FS, "output")
	if err != nil {
		t.Fatal(err)
	}
	if exists {
		t.Errorf("output directory was created for a declined run")
	}
}

func TestCollectNoProjectsIsEmptyNotFatal(t *testing.T) {
	responses := map[string]mockResponse{projectsListKey: {stdout: "[]"}}
	service := newTestService(&mockExecutor{responses: responses})

	result, err := service.Collect(context.Background(), allKindsOptions())
	if err != nil {
		t.Fatalf("Collect() error = %v", err)
	}
	if !result.Empty() || len(result.APIStatus) != 0 {
		t.Errorf("result for zero projects = %+v, want empty", result)
	}
}

func TestCollectAuthFailureIsFatal(t *testing.T) {
	executor := &mockExecutor{responses: map[string]mockResponse{
		"auth activate-service-account --key-file bad.json --quiet": {
			stderr: "ERROR: invalid key", err: errors.New("exit status 1"),
		},
	}}
	service := newTestService(executor, gcloud.WithKeyFile("bad.json"))

	opts := gcp.Options{ProjectID: "proj-any", IncludeVMs: true}
	_, err := service.Collect(context.Background(), opts)
	if !gcloud.IsAuthFailure(err) {
		t.Fatalf("Collect() error kind = %v, want FailAuth", gcloud.KindOf(err))
	}
}

func TestProjectsParsesDiscovery(t *testing.T) {
	executor := &mockExecutor{responses: map[string]mockResponse{
		projectsListKey: {stdout: `[
		  {"projectId": "proj-a", "name": "Alpha", "projectNumber": "100", "lifecycleState": "ACTIVE", "createTime": "2023-11-01T00:00:00Z"}
		]`},
	}}
	service := newTestService(executor)

	projects, err := service.Projects(context.Background())
	if err != nil {
		t.Fatalf("Projects() error = %v", err)
	}
	want := []gcp.Project{
		{ProjectID: "proj-a", Name: "Alpha", ProjectNumber: "100", LifecycleState: "ACTIVE", CreateTime: "2023-11-01T00:00:00Z"},
	}
	if !reflect.DeepEqual(projects, want) {
		t.Errorf("Projects() = %+v, want %+v", projects, want)
	}
}
