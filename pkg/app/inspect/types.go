package inspect

import (
	"fmt"

	"github.com/deploymenttheory/go-emmc/internal/types"
)

// ExtCsdRequest represents an EXT_CSD dump request
type ExtCsdRequest struct {
	// OutPath receives the raw 512-byte register (optional)
	OutPath string
}

// ExtCsdResponse represents the decoded EXT_CSD register
type ExtCsdResponse struct {
	Revision           uint8        `json:"ext_csd_rev" yaml:"ext_csd_rev"`
	RevisionName       string       `json:"revision_name" yaml:"revision_name"`
	CardType           uint8        `json:"card_type" yaml:"card_type"`
	BootSizeMultiplier uint8        `json:"boot_size_mult" yaml:"boot_size_mult"`
	UserSectorCount    uint32       `json:"sec_count" yaml:"sec_count"`
	Regions            []RegionInfo `json:"regions" yaml:"regions"`
	DumpPath           string       `json:"dump_path,omitempty" yaml:"dump_path,omitempty"`
}

// RegionInfo describes one addressable region
type RegionInfo struct {
	Name    string         `json:"name" yaml:"name"`
	ID      types.RegionID `json:"id" yaml:"id"`
	Sectors uint64         `json:"sectors" yaml:"sectors"`
	MiB     float64        `json:"mib" yaml:"mib"`
}

// GPTRequest represents a partition table read request
type GPTRequest struct {
	// OutPath receives the raw MBR, header and entry sectors (optional)
	OutPath string
}

// GPTResponse represents a decoded partition table
type GPTResponse struct {
	ProtectiveMBR types.ProtectiveMBR `json:"protective_mbr" yaml:"protective_mbr"`
	Header        HeaderInfo          `json:"header" yaml:"header"`
	Partitions    []PartitionInfo     `json:"partitions" yaml:"partitions"`
	DumpPath      string              `json:"dump_path,omitempty" yaml:"dump_path,omitempty"`
	DumpBytes     int                 `json:"dump_bytes,omitempty" yaml:"dump_bytes,omitempty"`
}

// HeaderInfo is the display form of the GPT header
type HeaderInfo struct {
	Signature                string `json:"signature" yaml:"signature"`
	Revision                 string `json:"revision" yaml:"revision"`
	HeaderSize               uint32 `json:"header_size" yaml:"header_size"`
	HeaderCRC32              string `json:"header_crc32" yaml:"header_crc32"`
	CurrentLBA               uint64 `json:"current_lba" yaml:"current_lba"`
	BackupLBA                uint64 `json:"backup_lba" yaml:"backup_lba"`
	FirstUsableLBA           uint64 `json:"first_usable_lba" yaml:"first_usable_lba"`
	LastUsableLBA            uint64 `json:"last_usable_lba" yaml:"last_usable_lba"`
	DiskGUID                 string `json:"disk_guid" yaml:"disk_guid"`
	PartitionEntryLBA        uint64 `json:"partition_entries_lba" yaml:"partition_entries_lba"`
	NumberOfPartitionEntries uint32 `json:"num_partition_entries" yaml:"num_partition_entries"`
	SizeOfPartitionEntry     uint32 `json:"partition_entry_size" yaml:"partition_entry_size"`
	PartitionEntryArrayCRC32 string `json:"partition_array_crc32" yaml:"partition_array_crc32"`
}

// PartitionInfo is the display form of one live partition entry
type PartitionInfo struct {
	Index       int     `json:"index" yaml:"index"`
	Name        string  `json:"name" yaml:"name"`
	TypeName    string  `json:"type_name" yaml:"type_name"`
	TypeGUID    string  `json:"type_guid" yaml:"type_guid"`
	UniqueGUID  string  `json:"unique_guid" yaml:"unique_guid"`
	FirstLBA    uint64  `json:"first_lba" yaml:"first_lba"`
	LastLBA     uint64  `json:"last_lba" yaml:"last_lba"`
	SizeSectors int64   `json:"size_sectors" yaml:"size_sectors"`
	SizeMiB     float64 `json:"size_mib" yaml:"size_mib"`
	Attributes  string  `json:"attributes" yaml:"attributes"`
}

func newExtCsdResponse(info *types.ExtCsdInfo) *ExtCsdResponse {
	resp := &ExtCsdResponse{
		Revision:           info.Revision,
		RevisionName:       info.RevisionName(),
		CardType:           info.CardType,
		BootSizeMultiplier: info.BootSizeMultiplier,
		UserSectorCount:    info.UserSectorCount,
	}
	for _, r := range types.Regions() {
		sectors := info.Capacity(r)
		resp.Regions = append(resp.Regions, RegionInfo{
			Name:    r.Name,
			ID:      r.ID,
			Sectors: sectors,
			MiB:     types.SectorsToMiB(sectors),
		})
	}
	return resp
}

func newGPTResponse(table *types.GptTable) *GPTResponse {
	h := table.Header
	resp := &GPTResponse{
		ProtectiveMBR: table.MBR,
		Header: HeaderInfo{
			Signature:                h.Signature,
			Revision:                 h.RevisionString(),
			HeaderSize:               h.HeaderSize,
			HeaderCRC32:              fmt.Sprintf("0x%08X", h.HeaderCRC32),
			CurrentLBA:               h.CurrentLBA,
			BackupLBA:                h.BackupLBA,
			FirstUsableLBA:           h.FirstUsableLBA,
			LastUsableLBA:            h.LastUsableLBA,
			DiskGUID:                 h.DiskGUID.String(),
			PartitionEntryLBA:        h.PartitionEntryLBA,
			NumberOfPartitionEntries: h.NumberOfPartitionEntries,
			SizeOfPartitionEntry:     h.SizeOfPartitionEntry,
			PartitionEntryArrayCRC32: fmt.Sprintf("0x%08X", h.PartitionEntryArrayCRC32),
		},
		Partitions: make([]PartitionInfo, 0, len(table.Partitions)),
	}
	for _, p := range table.Partitions {
		resp.Partitions = append(resp.Partitions, PartitionInfo{
			Index:       p.Index,
			Name:        p.Name,
			TypeName:    p.TypeName,
			TypeGUID:    p.TypeGUID.String(),
			UniqueGUID:  p.UniqueGUID.String(),
			FirstLBA:    p.FirstLBA,
			LastLBA:     p.LastLBA,
			SizeSectors: p.SizeSectors(),
			SizeMiB:     p.SizeMiB(),
			Attributes:  fmt.Sprintf("0x%016X", p.Attributes),
		})
	}
	return resp
}
