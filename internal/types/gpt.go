package types

import (
	"fmt"

	"github.com/google/uuid"
)

// GPT on-disk constants
// Reference: UEFI Specification 2.10, sections 5.2 and 5.3

const (
	// GPTSignature is the 8-byte ASCII marker at offset 0 of the header.
	GPTSignature = "EFI PART"

	// GPTHeaderLBA is the LBA of the primary GPT header.
	GPTHeaderLBA = 1
	// ProtectiveMBRLBA is the LBA of the protective MBR.
	ProtectiveMBRLBA = 0

	// GPTHeaderFieldsSize is the number of header bytes holding defined fields.
	GPTHeaderFieldsSize = 92
	// GPTEntrySize is the size of the fields of one partition entry.
	GPTEntrySize = 128
	// GPTEntryNameSize is the size of the UTF-16LE partition name field.
	GPTEntryNameSize = 72

	// MBRBootSignature is the value of bytes 510..511 of a valid MBR.
	MBRBootSignature = 0xAA55
	// MBRProtectiveType is the OS type of the protective MBR record.
	MBRProtectiveType = 0xEE
)

// GptHeader is the decoded primary GPT header.
// CRC fields are kept as stored; they are never verified.
type GptHeader struct {
	Signature                string    `json:"signature" yaml:"signature"`
	Revision                 uint32    `json:"revision" yaml:"revision"`
	HeaderSize               uint32    `json:"header_size" yaml:"header_size"`
	HeaderCRC32              uint32    `json:"header_crc32" yaml:"header_crc32"`
	CurrentLBA               uint64    `json:"current_lba" yaml:"current_lba"`
	BackupLBA                uint64    `json:"backup_lba" yaml:"backup_lba"`
	FirstUsableLBA           uint64    `json:"first_usable_lba" yaml:"first_usable_lba"`
	LastUsableLBA            uint64    `json:"last_usable_lba" yaml:"last_usable_lba"`
	DiskGUID                 uuid.UUID `json:"disk_guid" yaml:"disk_guid"`
	PartitionEntryLBA        uint64    `json:"partition_entries_lba" yaml:"partition_entries_lba"`
	NumberOfPartitionEntries uint32    `json:"num_partition_entries" yaml:"num_partition_entries"`
	SizeOfPartitionEntry     uint32    `json:"partition_entry_size" yaml:"partition_entry_size"`
	PartitionEntryArrayCRC32 uint32    `json:"partition_array_crc32" yaml:"partition_array_crc32"`
}

// RevisionString renders the revision as "major.minor".
func (h GptHeader) RevisionString() string {
	return fmt.Sprintf("%d.%d", h.Revision>>16, h.Revision&0xFFFF)
}

// EntryArraySectors returns the number of sectors covering the partition
// entry array as described by the header.
func (h GptHeader) EntryArraySectors() uint64 {
	total := uint64(h.NumberOfPartitionEntries) * uint64(h.SizeOfPartitionEntry)
	return (total + SectorSize - 1) / SectorSize
}

// PartitionEntry is one live GPT partition entry.
type PartitionEntry struct {
	// Zero-based slot index within the on-disk entry array.
	Index      int       `json:"index" yaml:"index"`
	TypeGUID   uuid.UUID `json:"type_guid" yaml:"type_guid"`
	TypeName   string    `json:"type_name" yaml:"type_name"`
	UniqueGUID uuid.UUID `json:"unique_guid" yaml:"unique_guid"`
	FirstLBA   uint64    `json:"first_lba" yaml:"first_lba"`
	// Inclusive.
	LastLBA    uint64 `json:"last_lba" yaml:"last_lba"`
	Attributes uint64 `json:"attributes" yaml:"attributes"`
	Name       string `json:"name" yaml:"name"`
}

// SizeSectors returns LastLBA - FirstLBA + 1. Entries with LastLBA < FirstLBA
// yield zero or a negative count; the value is reported, not rejected.
func (p PartitionEntry) SizeSectors() int64 {
	return int64(p.LastLBA) - int64(p.FirstLBA) + 1
}

// SizeMiB returns the partition size in mebibytes.
func (p PartitionEntry) SizeMiB() float64 {
	return float64(p.SizeSectors()) * SectorSize / (1024 * 1024)
}

// ProtectiveMBR summarises LBA 0. It is informational only.
type ProtectiveMBR struct {
	BootSignature uint16 `json:"boot_signature" yaml:"boot_signature"`
	// OS type of the first partition record.
	OSType uint8 `json:"os_type" yaml:"os_type"`
	// Starting LBA of the first partition record.
	StartingLBA uint32 `json:"starting_lba" yaml:"starting_lba"`
	// Size in LBAs of the first partition record.
	SizeInLBA uint32 `json:"size_in_lba" yaml:"size_in_lba"`
}

// IsProtective reports whether LBA 0 is a valid protective MBR.
func (m ProtectiveMBR) IsProtective() bool {
	return m.BootSignature == MBRBootSignature && m.OSType == MBRProtectiveType
}

// GptTable is one decoded snapshot of the partition table.
// It is rebuilt on every read and never cached.
type GptTable struct {
	MBR        ProtectiveMBR    `json:"protective_mbr" yaml:"protective_mbr"`
	Header     GptHeader        `json:"header" yaml:"header"`
	Partitions []PartitionEntry `json:"partitions" yaml:"partitions"`
}

// Names returns the names of all live partitions in index order.
func (t *GptTable) Names() []string {
	names := make([]string, 0, len(t.Partitions))
	for _, p := range t.Partitions {
		names = append(names, p.Name)
	}
	return names
}
