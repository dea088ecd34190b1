package globals

// Module names
const GCP_INVENTORY_MODULE_NAME = "inventory"
const GCP_CHECK_APIS_MODULE_NAME = "check-apis"
const GCP_WHOAMI_MODULE_NAME = "whoami"
const GCP_VMS_MODULE_NAME = "vm-inventory"
const GCP_SQL_MODULE_NAME = "sql-inventory"
const GCP_BIGQUERY_MODULE_NAME = "bigquery-inventory"
const GCP_GKE_MODULE_NAME = "gke-inventory"
const GCP_API_STATUS_MODULE_NAME = "api-status"

// gcloud local state
const GCP_GCLOUD_ACCESS_TOKENS_DB_PATH = ".config/gcloud/access_tokens.db"
const GCP_GCLOUD_DEFAULT_CONFIG_PATH = ".config/gcloud/configurations/config_default"

// APICatalogEntry names one provider API that must be enabled on a project
// before its resources can be listed.
type APICatalogEntry struct {
	ID   string
	Name string
}

// GCP_REQUIRED_APIS is the fixed capability catalog. Order here is the order
// statuses are reported in.
var GCP_REQUIRED_APIS = []APICatalogEntry{
	{ID: "compute.googleapis.com", Name: "Compute Engine API"},
	{ID: "sqladmin.googleapis.com", Name: "Cloud SQL Admin API"},
	{ID: "bigquery.googleapis.com", Name: "BigQuery API"},
	{ID: "container.googleapis.com", Name: "Kubernetes Engine API"},
}
