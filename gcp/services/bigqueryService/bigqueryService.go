package bigqueryservice

import (
	"context"
	"math"
	"strconv"
	"time"

	"cloud.google.com/go/bigquery"
	"google.golang.org/api/iterator"
)

const notAvailable = "N/A"

const bytesPerGB = 1024 * 1024 * 1024

// BigQueryDatasetInfo is one dataset flattened for export. TotalSizeGB is the
// sum of table sizes, rounded to 0.01 GB; a table whose metadata cannot be
// fetched contributes zero bytes but still counts toward TableCount.
type BigQueryDatasetInfo struct {
	ProjectID        string  `json:"project_id"`
	DatasetID        string  `json:"dataset_id"`
	Location         string  `json:"location"`
	CreationTime     string  `json:"creation_time"`
	LastModifiedTime string  `json:"last_modified_time"`
	TableCount       int     `json:"table_count"`
	TotalSizeGB      float64 `json:"total_size_gb"`
}

func Header() []string {
	return []string{
		"project_id",
		"dataset_id",
		"location",
		"creation_time",
		"last_modified_time",
		"table_count",
		"total_size_gb",
	}
}

func (i BigQueryDatasetInfo) Row() []string {
	return []string{
		i.ProjectID,
		i.DatasetID,
		i.Location,
		i.CreationTime,
		i.LastModifiedTime,
		strconv.Itoa(i.TableCount),
		strconv.FormatFloat(i.TotalSizeGB, 'f', 2, 64),
	}
}

// IDIterator yields dataset or table IDs until iterator.Done.
type IDIterator interface {
	Next() (string, error)
}

// Client is the narrow slice of the BigQuery API the collector needs. Tests
// substitute fakes; production wraps *bigquery.Client.
type Client interface {
	DatasetIDs(ctx context.Context) IDIterator
	DatasetMetadata(ctx context.Context, datasetID string) (*bigquery.DatasetMetadata, error)
	TableIDs(ctx context.Context, datasetID string) IDIterator
	TableMetadata(ctx context.Context, datasetID string, tableID string) (*bigquery.TableMetadata, error)
	Close() error
}

// ClientFactory opens a Client scoped to one project.
type ClientFactory func(ctx context.Context, projectID string) (Client, error)

type BigQueryService struct {
	NewClient ClientFactory
}

func New() *BigQueryService {
	return &BigQueryService{NewClient: newAPIClient}
}

// Datasets lists all datasets in a project with per-dataset storage totals.
// Empty slice + nil error means the project has none; a non-nil error means
// the listing could not be determined.
func (s *BigQueryService) Datasets(ctx context.Context, projectID string) ([]BigQueryDatasetInfo, error) {
	client, err := s.NewClient(ctx, projectID)
	if err != nil {
		return nil, err
	}
	defer client.Close()

	var datasets []BigQueryDatasetInfo
	it := client.DatasetIDs(ctx)
	for {
		datasetID, err := it.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, err
		}
		datasets = append(datasets, extractDataset(ctx, client, projectID, datasetID))
	}
	return datasets, nil
}

func extractDataset(ctx context.Context, client Client, projectID string, datasetID string) BigQueryDatasetInfo {
	info := BigQueryDatasetInfo{
		ProjectID:        projectID,
		DatasetID:        datasetID,
		Location:         notAvailable,
		CreationTime:     notAvailable,
		LastModifiedTime: notAvailable,
	}

	if meta, err := client.DatasetMetadata(ctx, datasetID); err == nil {
		if meta.Location != "" {
			info.Location = meta.Location
		}
		info.CreationTime = formatTime(meta.CreationTime)
		info.LastModifiedTime = formatTime(meta.LastModifiedTime)
	}

	tableCount, totalBytes := sumTables(ctx, client, datasetID)
	info.TableCount = tableCount
	info.TotalSizeGB = roundGB(totalBytes)
	return info
}

// sumTables walks a dataset's tables adding up NumBytes. A table whose
// metadata fetch fails degrades to a zero-byte contribution, it is not
// dropped from the count.
func sumTables(ctx context.Context, client Client, datasetID string) (int, int64) {
	var count int
	var totalBytes int64

	it := client.TableIDs(ctx, datasetID)
	for {
		tableID, err := it.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			break
		}
		count++
		if meta, err := client.TableMetadata(ctx, datasetID, tableID); err == nil {
			totalBytes += meta.NumBytes
		}
	}
	return count, totalBytes
}

func roundGB(numBytes int64) float64 {
	if numBytes <= 0 {
		return 0
	}
	return math.Round(float64(numBytes)/bytesPerGB*100) / 100
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return notAvailable
	}
	return t.UTC().Format(time.RFC3339)
}

// apiClient adapts *bigquery.Client to the Client interface.
type apiClient struct {
	bq *bigquery.Client
}

func newAPIClient(ctx context.Context, projectID string) (Client, error) {
	bq, err := bigquery.NewClient(ctx, projectID)
	if err != nil {
		return nil, err
	}
	return &apiClient{bq: bq}, nil
}

func (c *apiClient) DatasetIDs(ctx context.Context) IDIterator {
	return &datasetIDIterator{it: c.bq.Datasets(ctx)}
}

func (c *apiClient) DatasetMetadata(ctx context.Context, datasetID string) (*bigquery.DatasetMetadata, error) {
	return c.bq.Dataset(datasetID).Metadata(ctx)
}

func (c *apiClient) TableIDs(ctx context.Context, datasetID string) IDIterator {
	return &tableIDIterator{it: c.bq.Dataset(datasetID).Tables(ctx)}
}

func (c *apiClient) TableMetadata(ctx context.Context, datasetID string, tableID string) (*bigquery.TableMetadata, error) {
	return c.bq.Dataset(datasetID).Table(tableID).Metadata(ctx)
}

func (c *apiClient) Close() error {
	return c.bq.Close()
}

type datasetIDIterator struct {
	it *bigquery.DatasetIterator
}

func (d *datasetIDIterator) Next() (string, error) {
	ds, err := d.it.Next()
	if err != nil {
		return "", err
	}
	return ds.DatasetID, nil
}

type tableIDIterator struct {
	it *bigquery.TableIterator
}

func (t *tableIDIterator) Next() (string, error) {
	table, err := t.it.Next()
	if err != nil {
		return "", err
	}
	return table.TableID, nil
}
