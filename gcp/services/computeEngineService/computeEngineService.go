package computeengineservice

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/cloudinv/cloudinv/internal/gcloud"
	"github.com/patrickmn/go-cache"
)

const notAvailable = "N/A"

// ComputeEngineInfo is one VM flattened for export. Attributes that cannot be
// derived from the raw listing hold the "N/A" sentinel (zero for numerics).
type ComputeEngineInfo struct {
	ProjectID         string `json:"project_id"`
	VMID              string `json:"vm_id"`
	Name              string `json:"name"`
	Zone              string `json:"zone"`
	Status            string `json:"status"`
	MachineType       string `json:"machine_type"`
	CPUCount          int64  `json:"cpu_count"`
	MemoryMB          int64  `json:"memory_mb"`
	OS                string `json:"os"`
	CreationTimestamp string `json:"creation_timestamp"`
	Network           string `json:"network"`
	InternalIP        string `json:"internal_ip"`
	ExternalIP        string `json:"external_ip"`
}

// Header is the declared column order for tabular export.
func Header() []string {
	return []string{
		"project_id",
		"vm_id",
		"name",
		"zone",
		"status",
		"machine_type",
		"cpu_count",
		"memory_mb",
		"os",
		"creation_timestamp",
		"network",
		"internal_ip",
		"external_ip",
	}
}

func (i ComputeEngineInfo) Row() []string {
	return []string{
		i.ProjectID,
		i.VMID,
		i.Name,
		i.Zone,
		i.Status,
		i.MachineType,
		strconv.FormatInt(i.CPUCount, 10),
		strconv.FormatInt(i.MemoryMB, 10),
		i.OS,
		i.CreationTimestamp,
		i.Network,
		i.InternalIP,
		i.ExternalIP,
	}
}

// MachineTypeInfo is the CPU/memory enrichment resolved from a machine type
// name. The zero value is the sentinel for an unresolvable type.
type MachineTypeInfo struct {
	CPUCount int64
	MemoryMB int64
}

type rawInstance struct {
	ID                string                `json:"id"`
	Name              string                `json:"name"`
	Zone              string                `json:"zone"`
	Status            string                `json:"status"`
	MachineType       string                `json:"machineType"`
	CreationTimestamp string                `json:"creationTimestamp"`
	NetworkInterfaces []rawNetworkInterface `json:"networkInterfaces"`
	Disks             []rawDisk             `json:"disks"`
}

type rawNetworkInterface struct {
	Network       string            `json:"network"`
	NetworkIP     string            `json:"networkIP"`
	AccessConfigs []rawAccessConfig `json:"accessConfigs"`
}

type rawAccessConfig struct {
	NatIP string `json:"natIP"`
}

type rawDisk struct {
	Boot     bool     `json:"boot"`
	Licenses []string `json:"licenses"`
}

type rawMachineType struct {
	GuestCpus int64 `json:"guestCpus"`
	MemoryMb  int64 `json:"memoryMb"`
}

type ComputeEngineService struct {
	Client *gcloud.Client

	// Machine types repeat heavily within a zone; one describe call serves
	// every VM of that type for the rest of the run.
	machineTypes *cache.Cache
}

func New(client *gcloud.Client) *ComputeEngineService {
	return &ComputeEngineService{
		Client:       client,
		machineTypes: cache.New(30*time.Minute, 0),
	}
}

// Instances lists all VMs in a project and flattens each one. A non-nil
// error means the listing itself could not be determined; an empty slice
// with a nil error means the project has no VMs.
func (s *ComputeEngineService) Instances(ctx context.Context, projectID string) ([]ComputeEngineInfo, error) {
	var raw []rawInstance
	err := s.Client.RunJSON(ctx, &raw,
		"compute", "instances", "list",
		"--project", projectID,
		"--format=json",
		"--quiet",
	)
	if err != nil {
		return nil, err
	}

	infos := make([]ComputeEngineInfo, 0, len(raw))
	for _, vm := range raw {
		infos = append(infos, s.extractInstance(ctx, vm, projectID))
	}
	return infos, nil
}

func (s *ComputeEngineService) extractInstance(ctx context.Context, vm rawInstance, projectID string) ComputeEngineInfo {
	machineType := lastPathSegment(vm.MachineType)
	if machineType == "" {
		machineType = "unknown"
	}
	zone := stringOr(lastPathSegment(vm.Zone), notAvailable)

	machineInfo := s.machineTypeInfo(ctx, projectID, zone, machineType)

	network := notAvailable
	internalIP := notAvailable
	if len(vm.NetworkInterfaces) > 0 {
		network = stringOr(lastPathSegment(vm.NetworkInterfaces[0].Network), notAvailable)
		internalIP = stringOr(vm.NetworkInterfaces[0].NetworkIP, notAvailable)
	}

	return ComputeEngineInfo{
		ProjectID:         projectID,
		VMID:              stringOr(vm.ID, notAvailable),
		Name:              stringOr(vm.Name, notAvailable),
		Zone:              zone,
		Status:            stringOr(vm.Status, notAvailable),
		MachineType:       machineType,
		CPUCount:          machineInfo.CPUCount,
		MemoryMB:          machineInfo.MemoryMB,
		OS:                osInfo(vm),
		CreationTimestamp: stringOr(vm.CreationTimestamp, notAvailable),
		Network:           network,
		InternalIP:        internalIP,
		ExternalIP:        externalIP(vm),
	}
}

// machineTypeInfo resolves a machine type name into CPU count and memory.
// Failure or an unknown type yields the zero sentinel rather than failing
// the record.
func (s *ComputeEngineService) machineTypeInfo(ctx context.Context, projectID string, zone string, machineType string) MachineTypeInfo {
	if machineType == "unknown" || zone == notAvailable {
		return MachineTypeInfo{}
	}

	cacheKey := fmt.Sprintf("%s/%s/%s", projectID, zone, machineType)
	if cached, found := s.machineTypes.Get(cacheKey); found {
		return cached.(MachineTypeInfo)
	}

	var raw rawMachineType
	err := s.Client.RunJSON(ctx, &raw,
		"compute", "machine-types", "describe", machineType,
		"--project", projectID,
		"--zone", zone,
		"--format=json",
		"--quiet",
	)
	if err != nil {
		return MachineTypeInfo{}
	}

	info := MachineTypeInfo{CPUCount: raw.GuestCpus, MemoryMB: raw.MemoryMb}
	s.machineTypes.Set(cacheKey, info, cache.DefaultExpiration)
	return info
}

// osInfo derives the OS from the boot disk's first license URL. No disks, no
// boot-flagged disk, or no licenses all yield the sentinel.
func osInfo(vm rawInstance) string {
	for _, disk := range vm.Disks {
		if !disk.Boot {
			continue
		}
		if len(disk.Licenses) == 0 {
			return notAvailable
		}
		return stringOr(lastPathSegment(disk.Licenses[0]), notAvailable)
	}
	return notAvailable
}

// externalIP is the NAT IP of the first access config on the first interface.
func externalIP(vm rawInstance) string {
	if len(vm.NetworkInterfaces) == 0 {
		return notAvailable
	}
	accessConfigs := vm.NetworkInterfaces[0].AccessConfigs
	if len(accessConfigs) == 0 {
		return notAvailable
	}
	return stringOr(accessConfigs[0].NatIP, notAvailable)
}

func lastPathSegment(path string) string {
	if path == "" {
		return ""
	}
	splits := strings.Split(path, "/")
	return splits[len(splits)-1]
}

func stringOr(value string, fallback string) string {
	if value == "" {
		return fallback
	}
	return value
}
