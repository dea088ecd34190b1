package gcp

import (
	"fmt"

	apiservice "github.com/cloudinv/cloudinv/gcp/services/apiService"
	bigqueryservice "github.com/cloudinv/cloudinv/gcp/services/bigqueryService"
	computeengineservice "github.com/cloudinv/cloudinv/gcp/services/computeEngineService"
	containerservice "github.com/cloudinv/cloudinv/gcp/services/containerService"
	sqlservice "github.com/cloudinv/cloudinv/gcp/services/sqlService"
	"github.com/cloudinv/cloudinv/globals"
	"github.com/cloudinv/cloudinv/internal"
	"github.com/fatih/color"
)

const (
	FormatCSV  = "csv"
	FormatJSON = "json"
	FormatAll  = "all"
)

// ResultTable is one resource kind rendered as header + rows, used for both
// screen output and tabular export. Within one table every row follows the
// header's declared column order.
type ResultTable struct {
	Name   string
	Header []string
	Body   [][]string
}

func apiStatusHeader() []string {
	return []string{"project_id", "api_id", "api_name", "status"}
}

// Tables returns the non-empty resource tables of a frozen result, in the
// fixed kind order, with the API status table last.
func (r *InventoryResult) Tables() []ResultTable {
	var tables []ResultTable

	if len(r.VMs) > 0 {
		body := make([][]string, 0, len(r.VMs))
		for _, record := range r.VMs {
			body = append(body, record.Row())
		}
		tables = append(tables, ResultTable{Name: globals.GCP_VMS_MODULE_NAME, Header: computeengineservice.Header(), Body: body})
	}
	if len(r.SQLInstances) > 0 {
		body := make([][]string, 0, len(r.SQLInstances))
		for _, record := range r.SQLInstances {
			body = append(body, record.Row())
		}
		tables = append(tables, ResultTable{Name: globals.GCP_SQL_MODULE_NAME, Header: sqlservice.Header(), Body: body})
	}
	if len(r.BigQueryDatasets) > 0 {
		body := make([][]string, 0, len(r.BigQueryDatasets))
		for _, record := range r.BigQueryDatasets {
			body = append(body, record.Row())
		}
		tables = append(tables, ResultTable{Name: globals.GCP_BIGQUERY_MODULE_NAME, Header: bigqueryservice.Header(), Body: body})
	}
	if len(r.GKEClusters) > 0 {
		body := make([][]string, 0, len(r.GKEClusters))
		for _, record := range r.GKEClusters {
			body = append(body, record.Row())
		}
		tables = append(tables, ResultTable{Name: globals.GCP_GKE_MODULE_NAME, Header: containerservice.Header(), Body: body})
	}
	if len(r.APIStatus) > 0 {
		tables = append(tables, ResultTable{Name: globals.GCP_API_STATUS_MODULE_NAME, Header: apiStatusHeader(), Body: apiStatusRows(r.APIStatus, false)})
	}

	return tables
}

// Export writes the frozen result to the output directory in the requested
// format. One file per non-empty resource kind, plus the combined document
// under "all". Returns the paths written; empty kinds and aborted runs write
// nothing.
func (s *InventoryService) Export(result *InventoryResult, outputDirectory string, format string) ([]string, error) {
	if format != FormatCSV && format != FormatJSON && format != FormatAll {
		return nil, fmt.Errorf("unsupported output format %q (expected %q, %q, or %q)", format, FormatCSV, FormatJSON, FormatAll)
	}
	if result.Aborted {
		return nil, nil
	}

	var paths []string

	add := func(path string, err error) error {
		if err != nil {
			return err
		}
		if path != "" {
			paths = append(paths, path)
		}
		return nil
	}

	if format == FormatCSV || format == FormatAll {
		for _, t := range result.Tables() {
			if err := add(s.Exporter.ExportCSV(t.Header, t.Body, outputDirectory, t.Name)); err != nil {
				return paths, err
			}
		}
	}

	if format == FormatJSON || format == FormatAll {
		if err := add(s.Exporter.ExportJSON(result.VMs, outputDirectory, globals.GCP_VMS_MODULE_NAME)); err != nil {
			return paths, err
		}
		if err := add(s.Exporter.ExportJSON(result.SQLInstances, outputDirectory, globals.GCP_SQL_MODULE_NAME)); err != nil {
			return paths, err
		}
		if err := add(s.Exporter.ExportJSON(result.BigQueryDatasets, outputDirectory, globals.GCP_BIGQUERY_MODULE_NAME)); err != nil {
			return paths, err
		}
		if err := add(s.Exporter.ExportJSON(result.GKEClusters, outputDirectory, globals.GCP_GKE_MODULE_NAME)); err != nil {
			return paths, err
		}
		if err := add(s.Exporter.ExportJSON(result.APIStatus, outputDirectory, globals.GCP_API_STATUS_MODULE_NAME)); err != nil {
			return paths, err
		}
	}

	if format == FormatAll {
		if err := add(s.Exporter.ExportJSON(result, outputDirectory, "full_inventory")); err != nil {
			return paths, err
		}
	}

	return paths, nil
}

func apiStatusRows(statuses []apiservice.APIStatusInfo, colorize bool) [][]string {
	rows := make([][]string, 0, len(statuses))
	for _, status := range statuses {
		text := status.Status
		if colorize {
			text = colorStatus(status.Status)
		}
		rows = append(rows, []string{status.ProjectID, status.APIID, status.APIName, text})
	}
	return rows
}

// PrintAPIStatusTable shows the gate results before collection starts.
func PrintAPIStatusTable(statuses []apiservice.APIStatusInfo, wrapTable bool) {
	if len(statuses) == 0 {
		return
	}
	internal.PrintTableToScreen(apiStatusHeader(), apiStatusRows(statuses, true), wrapTable)
}

func colorStatus(status string) string {
	switch status {
	case apiservice.StatusOK:
		return color.GreenString(status)
	case apiservice.StatusCredentialIssue:
		return color.YellowString(status)
	default:
		return color.RedString(status)
	}
}

// AllAPIsOK reports whether every checked API is enabled.
func AllAPIsOK(statuses []apiservice.APIStatusInfo) bool {
	for _, status := range statuses {
		if status.Status != apiservice.StatusOK {
			return false
		}
	}
	return true
}

// Summary is the one-line operator recap logged after a run.
func (r *InventoryResult) Summary() string {
	return fmt.Sprintf("%d VMs, %d SQL instances, %d BigQuery datasets, %d GKE clusters (%d project/kind pairs skipped)",
		len(r.VMs), len(r.SQLInstances), len(r.BigQueryDatasets), len(r.GKEClusters), len(r.Skipped))
}
