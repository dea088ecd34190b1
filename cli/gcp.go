package cli

import (
	"bufio"
	"fmt"
	"log"
	"os"
	"strings"

	"github.com/cloudinv/cloudinv/gcp"
	apiservice "github.com/cloudinv/cloudinv/gcp/services/apiService"
	"github.com/cloudinv/cloudinv/globals"
	"github.com/cloudinv/cloudinv/internal"
	"github.com/cloudinv/cloudinv/internal/gcloud"
	"github.com/spf13/cobra"
)

var (
	GCPProjectID        string
	GCPOutputDirectory  string
	GCPOutputFormat     string
	GCPSkipDisabledAPIs bool
	GCPCheckAPIsOnly    bool
	GCPCredentialFile   string
	GCPIncludeVMs       bool
	GCPIncludeSQL       bool
	GCPIncludeBigQuery  bool
	GCPIncludeGKE       bool
	GCPVerbosity        int
	GCPWrapTable        bool

	InventoryCommand = &cobra.Command{
		Use:   globals.GCP_INVENTORY_MODULE_NAME,
		Short: "Collect GCP resource inventory across projects and export it",
		Long: `
Collect VM, Cloud SQL, BigQuery, and GKE inventory across all accessible projects:
cloudinv inventory

Collect a single project, skipping projects with disabled APIs:
cloudinv inventory --project my-project --skip-disabled-apis`,
		Args: cobra.MinimumNArgs(0),
		Run:  runInventoryCommand,
	}

	CheckAPIsCommand = &cobra.Command{
		Use:   globals.GCP_CHECK_APIS_MODULE_NAME,
		Short: "Check required API enablement per project without collecting",
		Long: `
Check API status for all accessible projects:
cloudinv check-apis`,
		Args: cobra.MinimumNArgs(0),
		Run:  runCheckAPIsCommand,
	}

	WhoamiCommand = &cobra.Command{
		Use:   globals.GCP_WHOAMI_MODULE_NAME,
		Short: "Display available local gcloud sessions",
		Long: `
Display available gcloud sessions:
cloudinv whoami`,
		Run: func(cmd *cobra.Command, args []string) {
			err := gcp.WhoamiCommand(cmd.Root().Version, GCPWrapTable)
			if err != nil {
				log.Fatal(err)
			}
		},
	}
)

func newInventoryService() *gcp.InventoryService {
	var clientOpts []gcloud.Option
	if GCPCredentialFile != "" {
		clientOpts = append(clientOpts, gcloud.WithKeyFile(GCPCredentialFile))
	}
	return gcp.NewInventoryService(gcloud.NewClient(clientOpts...))
}

func collectionOptions() gcp.Options {
	return gcp.Options{
		ProjectID:        GCPProjectID,
		SkipDisabledAPIs: GCPSkipDisabledAPIs,
		IncludeVMs:       GCPIncludeVMs,
		IncludeSQL:       GCPIncludeSQL,
		IncludeBigQuery:  GCPIncludeBigQuery,
		IncludeGKE:       GCPIncludeGKE,
	}
}

func runInventoryCommand(cmd *cobra.Command, args []string) {
	logger := internal.NewLogger()
	if err := gcloud.EnsureInstalled(); err != nil {
		logger.FatalM(err.Error(), globals.GCP_INVENTORY_MODULE_NAME)
	}

	ctx := cmd.Context()
	service := newInventoryService()
	opts := collectionOptions()
	opts.OnAPIStatus = func(statuses []apiservice.APIStatusInfo) bool {
		gcp.PrintAPIStatusTable(statuses, GCPWrapTable)
		if GCPCheckAPIsOnly {
			logger.InfoM("API check completed. Exiting as requested.", globals.GCP_CHECK_APIS_MODULE_NAME)
			return false
		}
		if gcp.AllAPIsOK(statuses) || GCPSkipDisabledAPIs {
			return true
		}
		logger.WarnM("Some required APIs are not enabled or have credential issues; collection may be incomplete.", globals.GCP_INVENTORY_MODULE_NAME)
		return confirm("Do you want to proceed anyway? (y/n): ")
	}

	result, err := service.Collect(ctx, opts)
	if err != nil {
		logger.FatalM(err.Error(), globals.GCP_INVENTORY_MODULE_NAME)
	}
	if GCPCheckAPIsOnly {
		return
	}
	if result.Aborted {
		logger.InfoM("Exiting as requested.", globals.GCP_INVENTORY_MODULE_NAME)
		return
	}

	if GCPVerbosity >= 2 {
		for _, t := range result.Tables() {
			internal.PrintTableToScreen(t.Header, t.Body, GCPWrapTable)
		}
	}

	if result.Empty() {
		logger.WarnM("No resources collected.", globals.GCP_INVENTORY_MODULE_NAME)
	}

	paths, err := service.Export(result, GCPOutputDirectory, GCPOutputFormat)
	if err != nil {
		logger.FatalM(err.Error(), globals.GCP_INVENTORY_MODULE_NAME)
	}
	for _, path := range paths {
		logger.InfoM(fmt.Sprintf("Output written to %s", path), globals.GCP_INVENTORY_MODULE_NAME)
	}
	logger.SuccessM(fmt.Sprintf("Done: %s", result.Summary()), globals.GCP_INVENTORY_MODULE_NAME)
}

func runCheckAPIsCommand(cmd *cobra.Command, args []string) {
	logger := internal.NewLogger()
	if err := gcloud.EnsureInstalled(); err != nil {
		logger.FatalM(err.Error(), globals.GCP_CHECK_APIS_MODULE_NAME)
	}

	service := newInventoryService()
	statuses, err := service.CheckAPIs(cmd.Context(), collectionOptions())
	if err != nil {
		logger.FatalM(err.Error(), globals.GCP_CHECK_APIS_MODULE_NAME)
	}
	gcp.PrintAPIStatusTable(statuses, GCPWrapTable)
	if !gcp.AllAPIsOK(statuses) {
		logger.WarnM("Some required APIs are not enabled or have credential issues.", globals.GCP_CHECK_APIS_MODULE_NAME)
	}
}

func confirm(prompt string) bool {
	fmt.Print(prompt)
	reader := bufio.NewReader(os.Stdin)
	answer, err := reader.ReadString('\n')
	if err != nil {
		return false
	}
	return strings.ToLower(strings.TrimSpace(answer)) == "y"
}

func init() {
	InventoryCommand.Flags().StringVarP(
		&GCPProjectID,
		"project",
		"p",
		"",
		"Specific GCP project ID to inventory (default: discover all accessible projects)")
	InventoryCommand.Flags().StringVarP(
		&GCPOutputDirectory,
		"output-dir",
		"d",
		"output",
		"Directory to store the exported inventory")
	InventoryCommand.Flags().StringVarP(
		&GCPOutputFormat,
		"format",
		"o",
		gcp.FormatAll,
		"[\"csv\" | \"json\" | \"all\" ]")
	InventoryCommand.Flags().BoolVar(
		&GCPSkipDisabledAPIs,
		"skip-disabled-apis",
		false,
		"Record projects with disabled APIs as skipped instead of warning")
	InventoryCommand.Flags().BoolVar(
		&GCPCheckAPIsOnly,
		"check-apis-only",
		false,
		"Only check API status without collecting inventory")
	InventoryCommand.Flags().StringVar(
		&GCPCredentialFile,
		"credential-file",
		"",
		"Path to a service account key file (default: ambient gcloud credentials)")
	InventoryCommand.Flags().BoolVar(
		&GCPIncludeVMs,
		"vms",
		true,
		"Collect Compute Engine instances")
	InventoryCommand.Flags().BoolVar(
		&GCPIncludeSQL,
		"sql",
		true,
		"Collect Cloud SQL instances")
	InventoryCommand.Flags().BoolVar(
		&GCPIncludeBigQuery,
		"bigquery",
		true,
		"Collect BigQuery datasets")
	InventoryCommand.Flags().BoolVar(
		&GCPIncludeGKE,
		"gke",
		true,
		"Collect GKE clusters")
	InventoryCommand.Flags().IntVarP(
		&GCPVerbosity,
		"verbosity",
		"v",
		1,
		"1 = Print control messages only\n2 = Print control messages and result tables\n")
	InventoryCommand.Flags().BoolVarP(
		&GCPWrapTable,
		"wrap",
		"w",
		false,
		"Wrap table to fit in terminal (complicates grepping)")

	CheckAPIsCommand.Flags().StringVarP(
		&GCPProjectID,
		"project",
		"p",
		"",
		"Specific GCP project ID to check (default: discover all accessible projects)")
	CheckAPIsCommand.Flags().StringVar(
		&GCPCredentialFile,
		"credential-file",
		"",
		"Path to a service account key file (default: ambient gcloud credentials)")
	CheckAPIsCommand.Flags().BoolVarP(
		&GCPWrapTable,
		"wrap",
		"w",
		false,
		"Wrap table to fit in terminal (complicates grepping)")
}
