package transfer

import (
	"time"

	"github.com/deploymenttheory/go-emmc/internal/services"
	"github.com/deploymenttheory/go-emmc/internal/types"
)

// Round-trip defaults: the last sectors of boot1, which stock firmware leaves
// empty.
const (
	DefaultRoundTripRegion = "boot1"
	DefaultRoundTripCount  = 100
)

// MaxReportedMismatches bounds the mismatches listed in table output.
const MaxReportedMismatches = 5

// ReadRequest represents a region read
type ReadRequest struct {
	Region string
	Start  uint64
	// Count of zero reads to the end of the region
	Count   uint64
	OutPath string
}

// WriteRequest represents a region write
type WriteRequest struct {
	Region string
	Start  uint64
	InPath string
}

// RangeResponse reports a completed region or partition transfer
type RangeResponse struct {
	Operation string        `json:"operation" yaml:"operation"`
	Target    string        `json:"target" yaml:"target"`
	Region    string        `json:"region" yaml:"region"`
	Start     uint64        `json:"start" yaml:"start"`
	Sectors   uint64        `json:"sectors" yaml:"sectors"`
	Path      string        `json:"path" yaml:"path"`
	FileBytes int64         `json:"file_bytes" yaml:"file_bytes"`
	Elapsed   time.Duration `json:"elapsed" yaml:"elapsed"`

	// Partition is set for partition transfers
	Partition *PartitionInfo `json:"partition,omitempty" yaml:"partition,omitempty"`
	// UntouchedSectors counts trailing partition sectors a short write left
	UntouchedSectors uint64 `json:"untouched_sectors,omitempty" yaml:"untouched_sectors,omitempty"`
}

// MegabytesPerSecond returns the average transfer rate.
func (r *RangeResponse) MegabytesPerSecond() float64 {
	if r.Elapsed <= 0 {
		return 0
	}
	return types.SectorsToMiB(r.Sectors) / r.Elapsed.Seconds()
}

// ReadPartitionRequest represents a whole-partition read
type ReadPartitionRequest struct {
	Label   string
	OutPath string
}

// ConfirmFunc decides whether a short partition write may proceed.
type ConfirmFunc func(plan *services.PartitionWritePlan) (bool, error)

// WritePartitionRequest represents a whole-partition write
type WritePartitionRequest struct {
	Label  string
	InPath string
	// AssumeYes proceeds with a short write without asking
	AssumeYes bool
	// Confirm is asked when the image is smaller than the partition and
	// AssumeYes is not set. A nil Confirm declines.
	Confirm ConfirmFunc
}

// PartitionInfo describes the partition a transfer addressed
type PartitionInfo struct {
	Name        string  `json:"name" yaml:"name"`
	TypeName    string  `json:"type_name" yaml:"type_name"`
	FirstLBA    uint64  `json:"first_lba" yaml:"first_lba"`
	LastLBA     uint64  `json:"last_lba" yaml:"last_lba"`
	SizeSectors int64   `json:"size_sectors" yaml:"size_sectors"`
	SizeMiB     float64 `json:"size_mib" yaml:"size_mib"`
}

func newPartitionInfo(p types.PartitionEntry) *PartitionInfo {
	return &PartitionInfo{
		Name:        p.Name,
		TypeName:    p.TypeName,
		FirstLBA:    p.FirstLBA,
		LastLBA:     p.LastLBA,
		SizeSectors: p.SizeSectors(),
		SizeMiB:     p.SizeMiB(),
	}
}

// RoundTripRequest represents a destructive round-trip test
type RoundTripRequest struct {
	Region string
	Start  uint64
	// StartSet is false when Start should default to the last Count
	// sectors of the region
	StartSet bool
	Count    uint64
}

// RoundTripResponse reports a completed round-trip test
type RoundTripResponse struct {
	services.RoundTripResult `yaml:",inline"`
	// Status is PASSED or FAILED
	Status string `json:"status" yaml:"status"`
}

func newRoundTripResponse(result *services.RoundTripResult) *RoundTripResponse {
	status := "FAILED"
	if result.Passed() {
		status = "PASSED"
	}
	return &RoundTripResponse{RoundTripResult: *result, Status: status}
}
