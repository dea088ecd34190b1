package sqlservice

import (
	"context"

	"github.com/cloudinv/cloudinv/internal/gcloud"
)

const notAvailable = "N/A"

// SQLInstanceInfo is one Cloud SQL instance flattened for export.
type SQLInstanceInfo struct {
	ProjectID        string `json:"project_id"`
	InstanceName     string `json:"instance_name"`
	DatabaseVersion  string `json:"database_version"`
	Region           string `json:"region"`
	Tier             string `json:"tier"`
	StorageSizeGB    string `json:"storage_size_gb"`
	StorageType      string `json:"storage_type"`
	AvailabilityType string `json:"availability_type"`
	State            string `json:"state"`
	CreationTime     string `json:"creation_time"`
	PublicIP         string `json:"public_ip"`
	PrivateIP        string `json:"private_ip"`
}

func Header() []string {
	return []string{
		"project_id",
		"instance_name",
		"database_version",
		"region",
		"tier",
		"storage_size_gb",
		"storage_type",
		"availability_type",
		"state",
		"creation_time",
		"public_ip",
		"private_ip",
	}
}

func (i SQLInstanceInfo) Row() []string {
	return []string{
		i.ProjectID,
		i.InstanceName,
		i.DatabaseVersion,
		i.Region,
		i.Tier,
		i.StorageSizeGB,
		i.StorageType,
		i.AvailabilityType,
		i.State,
		i.CreationTime,
		i.PublicIP,
		i.PrivateIP,
	}
}

type rawSQLInstance struct {
	Name            string         `json:"name"`
	DatabaseVersion string         `json:"databaseVersion"`
	Region          string         `json:"region"`
	State           string         `json:"state"`
	CreateTime      string         `json:"createTime"`
	Settings        rawSQLSettings `json:"settings"`
	IPAddresses     []rawIPAddress `json:"ipAddresses"`
}

type rawSQLSettings struct {
	Tier             string `json:"tier"`
	DataDiskSizeGb   string `json:"dataDiskSizeGb"`
	DataDiskType     string `json:"dataDiskType"`
	AvailabilityType string `json:"availabilityType"`
}

type rawIPAddress struct {
	IPAddress string `json:"ipAddress"`
	Type      string `json:"type"`
}

type SQLService struct {
	Client *gcloud.Client
}

func New(client *gcloud.Client) *SQLService {
	return &SQLService{Client: client}
}

// Instances lists all Cloud SQL instances in a project. Empty slice + nil
// error means the project has none; a non-nil error means the listing could
// not be determined.
func (s *SQLService) Instances(ctx context.Context, projectID string) ([]SQLInstanceInfo, error) {
	var raw []rawSQLInstance
	err := s.Client.RunJSON(ctx, &raw,
		"sql", "instances", "list",
		"--project", projectID,
		"--format=json",
		"--quiet",
	)
	if err != nil {
		return nil, err
	}

	infos := make([]SQLInstanceInfo, 0, len(raw))
	for _, instance := range raw {
		infos = append(infos, extractInstance(instance, projectID))
	}
	return infos, nil
}

func extractInstance(instance rawSQLInstance, projectID string) SQLInstanceInfo {
	publicIP := notAvailable
	if len(instance.IPAddresses) > 0 {
		publicIP = stringOr(instance.IPAddresses[0].IPAddress, notAvailable)
	}

	privateIP := notAvailable
	for _, ip := range instance.IPAddresses {
		if ip.Type == "PRIVATE" {
			privateIP = stringOr(ip.IPAddress, notAvailable)
			break
		}
	}

	return SQLInstanceInfo{
		ProjectID:        projectID,
		InstanceName:     stringOr(instance.Name, notAvailable),
		DatabaseVersion:  stringOr(instance.DatabaseVersion, notAvailable),
		Region:           stringOr(instance.Region, notAvailable),
		Tier:             stringOr(instance.Settings.Tier, notAvailable),
		StorageSizeGB:    stringOr(instance.Settings.DataDiskSizeGb, notAvailable),
		StorageType:      stringOr(instance.Settings.DataDiskType, notAvailable),
		AvailabilityType: stringOr(instance.Settings.AvailabilityType, notAvailable),
		State:            stringOr(instance.State, notAvailable),
		CreationTime:     stringOr(instance.CreateTime, notAvailable),
		PublicIP:         publicIP,
		PrivateIP:        privateIP,
	}
}

func stringOr(value string, fallback string) string {
	if value == "" {
		return fallback
	}
	return value
}
