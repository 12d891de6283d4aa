package services

import (
	"context"
	"fmt"
	"math"

	"github.com/deploymenttheory/go-emmc/internal/interfaces"
	"github.com/deploymenttheory/go-emmc/internal/parsers/gpt"
	"github.com/deploymenttheory/go-emmc/internal/types"
)

// MaxEntryArraySectors caps the partition entry array read. A corrupt header
// can claim billions of entries; the decoder treats the cut as truncation.
const MaxEntryArraySectors = 2048

// GPTSnapshot is one GPT read: the raw sectors and the decoded table.
type GPTSnapshot struct {
	MBR     []byte
	Header  []byte
	Entries []byte
	Table   *types.GptTable
}

// Raw returns the MBR, header and entry sectors concatenated, as dumped to
// disk.
func (g *GPTSnapshot) Raw() []byte {
	raw := make([]byte, 0, len(g.MBR)+len(g.Header)+len(g.Entries))
	raw = append(raw, g.MBR...)
	raw = append(raw, g.Header...)
	return append(raw, g.Entries...)
}

// GPTService reads the primary GPT from the userdata region.
type GPTService struct {
	device interfaces.SectorReader
	config Config
}

// NewGPTService creates a GPT reader for device.
func NewGPTService(device interfaces.SectorReader, opts ...Option) *GPTService {
	if device == nil {
		panic("device cannot be nil")
	}

	cfg := defaultConfig()
	for _, opt := range opts {
		opt(&cfg)
	}

	return &GPTService{device: device, config: cfg}
}

// ReadTable reads LBA 0, LBA 1 and the entry array the header points at, then
// decodes them. Every call goes to the device; nothing is cached.
func (s *GPTService) ReadTable(ctx context.Context) (*GPTSnapshot, error) {
	region := types.RegionIDUserData

	mbr, err := s.device.ReadSector(region, types.ProtectiveMBRLBA)
	if err != nil {
		return nil, fmt.Errorf("read protective MBR: %w", err)
	}

	headerSector, err := s.device.ReadSector(region, types.GPTHeaderLBA)
	if err != nil {
		return nil, fmt.Errorf("read GPT header: %w", err)
	}

	header, err := gpt.DecodeHeader(headerSector)
	if err != nil {
		return nil, fmt.Errorf("no valid GPT found on userdata region: %w", err)
	}

	sectors := header.EntryArraySectors()
	if sectors > MaxEntryArraySectors {
		s.config.Logger.Warn("partition entry array truncated",
			"claimed_sectors", sectors,
			"max_sectors", MaxEntryArraySectors,
		)
		sectors = MaxEntryArraySectors
	}
	if sectors > 0 && header.PartitionEntryLBA+sectors-1 > math.MaxUint32 {
		return nil, &types.BoundsError{
			Target:   "gpt entries",
			Start:    header.PartitionEntryLBA,
			Count:    sectors,
			Capacity: math.MaxUint32,
			Reason:   fmt.Sprintf("partition entry array at LBA %d is beyond 32-bit sector addressing", header.PartitionEntryLBA),
		}
	}

	s.config.Logger.Debug("reading partition entries",
		"lba", header.PartitionEntryLBA,
		"sectors", sectors,
		"entries", header.NumberOfPartitionEntries,
		"entry_size", header.SizeOfPartitionEntry,
	)

	entries := make([]byte, 0, sectors*types.SectorSize)
	for i := uint64(0); i < sectors; i++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		data, err := s.device.ReadSector(region, uint32(header.PartitionEntryLBA+i))
		if err != nil {
			return nil, fmt.Errorf("read partition entries: %w", err)
		}
		entries = append(entries, data...)
	}

	table, err := gpt.DecodeTable(mbr, headerSector, entries, header.NumberOfPartitionEntries, header.SizeOfPartitionEntry)
	if err != nil {
		return nil, fmt.Errorf("decode GPT: %w", err)
	}

	return &GPTSnapshot{
		MBR:     mbr,
		Header:  headerSector,
		Entries: entries,
		Table:   table,
	}, nil
}
