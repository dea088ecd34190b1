package containerservice

import (
	"context"
	"strconv"

	"github.com/cloudinv/cloudinv/internal/gcloud"
)

const notAvailable = "N/A"

// GKEClusterInfo is one GKE cluster flattened for export. Node count is the
// sum of initial node counts across node pools.
type GKEClusterInfo struct {
	ProjectID         string `json:"project_id"`
	ClusterName       string `json:"cluster_name"`
	Location          string `json:"location"`
	Status            string `json:"status"`
	KubernetesVersion string `json:"kubernetes_version"`
	NodeCount         int64  `json:"node_count"`
	NodePools         int    `json:"node_pools"`
	Network           string `json:"network"`
	Subnetwork        string `json:"subnetwork"`
	CreationTime      string `json:"creation_time"`
}

func Header() []string {
	return []string{
		"project_id",
		"cluster_name",
		"location",
		"status",
		"kubernetes_version",
		"node_count",
		"node_pools",
		"network",
		"subnetwork",
		"creation_time",
	}
}

func (i GKEClusterInfo) Row() []string {
	return []string{
		i.ProjectID,
		i.ClusterName,
		i.Location,
		i.Status,
		i.KubernetesVersion,
		strconv.FormatInt(i.NodeCount, 10),
		strconv.Itoa(i.NodePools),
		i.Network,
		i.Subnetwork,
		i.CreationTime,
	}
}

type rawCluster struct {
	Name                 string        `json:"name"`
	Location             string        `json:"location"`
	Status               string        `json:"status"`
	CurrentMasterVersion string        `json:"currentMasterVersion"`
	Network              string        `json:"network"`
	Subnetwork           string        `json:"subnetwork"`
	CreateTime           string        `json:"createTime"`
	NodePools            []rawNodePool `json:"nodePools"`
}

type rawNodePool struct {
	InitialNodeCount int64 `json:"initialNodeCount"`
}

type ContainerService struct {
	Client *gcloud.Client
}

func New(client *gcloud.Client) *ContainerService {
	return &ContainerService{Client: client}
}

// Clusters lists all GKE clusters in a project. Empty slice + nil error means
// the project has none; a non-nil error means the listing could not be
// determined.
func (s *ContainerService) Clusters(ctx context.Context, projectID string) ([]GKEClusterInfo, error) {
	var raw []rawCluster
	err := s.Client.RunJSON(ctx, &raw,
		"container", "clusters", "list",
		"--project", projectID,
		"--format=json",
		"--quiet",
	)
	if err != nil {
		return nil, err
	}

	infos := make([]GKEClusterInfo, 0, len(raw))
	for _, cluster := range raw {
		infos = append(infos, extractCluster(cluster, projectID))
	}
	return infos, nil
}

func extractCluster(cluster rawCluster, projectID string) GKEClusterInfo {
	var totalNodes int64
	for _, pool := range cluster.NodePools {
		totalNodes += pool.InitialNodeCount
	}

	return GKEClusterInfo{
		ProjectID:         projectID,
		ClusterName:       stringOr(cluster.Name, notAvailable),
		Location:          stringOr(cluster.Location, notAvailable),
		Status:            stringOr(cluster.Status, notAvailable),
		KubernetesVersion: stringOr(cluster.CurrentMasterVersion, notAvailable),
		NodeCount:         totalNodes,
		NodePools:         len(cluster.NodePools),
		Network:           stringOr(cluster.Network, notAvailable),
		Subnetwork:        stringOr(cluster.Subnetwork, notAvailable),
		CreationTime:      stringOr(cluster.CreateTime, notAvailable),
	}
}

func stringOr(value string, fallback string) string {
	if value == "" {
		return fallback
	}
	return value
}
