package services

import (
	"context"
	"fmt"
	"io"
	"math"

	"github.com/deploymenttheory/go-emmc/internal/interfaces"
	"github.com/deploymenttheory/go-emmc/internal/types"
)

// SectorIOService performs bounded bulk sector transfers against an extent.
// Transfers are strictly sequential, one sector per device transaction, and
// stop at the first failure without rolling back.
type SectorIOService struct {
	device interfaces.SectorDevice
	config Config
}

// NewSectorIOService creates a sector I/O service for device.
func NewSectorIOService(device interfaces.SectorDevice, opts ...Option) *SectorIOService {
	if device == nil {
		panic("device cannot be nil")
	}

	cfg := defaultConfig()
	for _, opt := range opts {
		opt(&cfg)
	}

	return &SectorIOService{
		device: device,
		config: cfg,
	}
}

// ReadRange streams count sectors starting at extent-relative sector start
// into w. A zero count means "to the end of the extent". The range is checked
// before any transaction is issued. It returns the number of sectors read.
func (s *SectorIOService) ReadRange(ctx context.Context, extent types.Extent, start, count uint64, w io.Writer) (uint64, error) {
	count = extent.ResolveCount(start, count)
	if err := checkAddressable(extent, start, count); err != nil {
		return 0, err
	}

	s.config.Logger.Info("reading sectors",
		"target", extent.Name,
		"region", extent.Region.Name,
		"start", start,
		"count", count,
	)

	tracker := newProgressTracker(s.config, extent.Name, PhaseRead, count)
	for i := uint64(0); i < count; i++ {
		if err := ctx.Err(); err != nil {
			return i, err
		}

		data, err := s.readSector(extent, start+i)
		if err != nil {
			return i, err
		}
		if _, err := w.Write(data); err != nil {
			return i, fmt.Errorf("write output at sector %d: %w", start+i, err)
		}

		if err := s.afterSector(i+1, count, tracker); err != nil {
			return i + 1, err
		}
	}

	return count, nil
}

// WriteRange writes size bytes from src starting at extent-relative sector
// start. The byte count is rounded up to whole sectors and the final sector is
// zero padded. It returns the number of sectors written.
func (s *SectorIOService) WriteRange(ctx context.Context, extent types.Extent, start uint64, src io.Reader, size int64) (uint64, error) {
	if size < 0 {
		return 0, fmt.Errorf("input size cannot be negative: %d", size)
	}

	count := types.SectorsFor(size)
	if err := checkAddressable(extent, start, count); err != nil {
		return 0, err
	}

	s.config.Logger.Info("writing sectors",
		"target", extent.Name,
		"region", extent.Region.Name,
		"start", start,
		"count", count,
		"bytes", size,
	)

	tracker := newProgressTracker(s.config, extent.Name, PhaseWrite, count)
	buf := make([]byte, types.SectorSize)
	remaining := size
	for i := uint64(0); i < count; i++ {
		if err := ctx.Err(); err != nil {
			return i, err
		}

		n := int64(types.SectorSize)
		if remaining < n {
			n = remaining
		}
		if _, err := io.ReadFull(src, buf[:n]); err != nil {
			return i, fmt.Errorf("read input for sector %d: %w", start+i, err)
		}
		clear(buf[n:])
		remaining -= n

		if err := s.writeSector(extent, start+i, buf); err != nil {
			return i, err
		}

		if err := s.afterSector(i+1, count, tracker); err != nil {
			return i + 1, err
		}
	}

	return count, nil
}

// PartitionWritePlan is a validated partition write, ready to execute.
type PartitionWritePlan struct {
	Partition types.PartitionEntry
	Extent    types.Extent
	// InputBytes is the size of the image to write.
	InputBytes int64
	// InputSectors is InputBytes rounded up to whole sectors.
	InputSectors uint64
}

// Short reports whether the image leaves part of the partition untouched.
func (p *PartitionWritePlan) Short() bool {
	return p.InputSectors < p.Extent.Capacity
}

// UntouchedSectors returns the number of trailing partition sectors that the
// write leaves as they are.
func (p *PartitionWritePlan) UntouchedSectors() uint64 {
	if !p.Short() {
		return 0
	}
	return p.Extent.Capacity - p.InputSectors
}

// PlanPartitionWrite resolves name in table and checks that size bytes fit.
// Oversized input fails with a PartitionOverflowError before any I/O.
func (s *SectorIOService) PlanPartitionWrite(table *types.GptTable, name string, size int64) (*PartitionWritePlan, error) {
	if size < 0 {
		return nil, fmt.Errorf("input size cannot be negative: %d", size)
	}

	partition, err := ResolvePartition(table, name)
	if err != nil {
		return nil, err
	}

	extent := types.PartitionExtent(*partition)
	sectors := types.SectorsFor(size)
	if sectors > extent.Capacity {
		return nil, &types.PartitionOverflowError{
			Partition:        partition.Name,
			InputSectors:     sectors,
			InputBytes:       size,
			PartitionSectors: extent.Capacity,
		}
	}

	return &PartitionWritePlan{
		Partition:    *partition,
		Extent:       extent,
		InputBytes:   size,
		InputSectors: sectors,
	}, nil
}

// WritePartition executes plan from src. A short image is only written when
// confirmed is true; otherwise ErrShortWriteNotConfirmed is returned and no
// transaction is issued.
func (s *SectorIOService) WritePartition(ctx context.Context, plan *PartitionWritePlan, src io.Reader, confirmed bool) (uint64, error) {
	if plan == nil {
		return 0, fmt.Errorf("partition write plan cannot be nil")
	}
	if plan.Short() && !confirmed {
		return 0, fmt.Errorf("partition '%s': %d of %d sectors would be left unchanged: %w",
			plan.Partition.Name, plan.UntouchedSectors(), plan.Extent.Capacity, types.ErrShortWriteNotConfirmed)
	}

	return s.WriteRange(ctx, plan.Extent, 0, src, plan.InputBytes)
}

// ReadPartition reads the whole of partition name into w.
func (s *SectorIOService) ReadPartition(ctx context.Context, table *types.GptTable, name string, w io.Writer) (*types.PartitionEntry, uint64, error) {
	partition, err := ResolvePartition(table, name)
	if err != nil {
		return nil, 0, err
	}

	extent := types.PartitionExtent(*partition)
	if extent.Capacity == 0 {
		return partition, 0, &types.BoundsError{
			Target:   partition.Name,
			Capacity: 0,
			Reason:   fmt.Sprintf("partition '%s' has no sectors (LBA %d-%d)", partition.Name, partition.FirstLBA, partition.LastLBA),
		}
	}

	n, err := s.ReadRange(ctx, extent, 0, extent.Capacity, w)
	return partition, n, err
}

// afterSector runs the between-transaction housekeeping: watchdog kicks and
// progress updates.
func (s *SectorIOService) afterSector(done, total uint64, tracker *progressTracker) error {
	if s.config.WatchdogInterval > 0 && done%s.config.WatchdogInterval == 0 && done < total {
		if err := s.device.KickWatchdog(); err != nil {
			return err
		}
		s.config.Logger.Debug("watchdog kicked", "sectors", done)
	}
	tracker.update(done)
	return nil
}

func (s *SectorIOService) readSector(extent types.Extent, sector uint64) ([]byte, error) {
	return s.device.ReadSector(extent.Region.ID, uint32(extent.Absolute(sector)))
}

func (s *SectorIOService) writeSector(extent types.Extent, sector uint64, data []byte) error {
	lba := uint32(extent.Absolute(sector))
	ok, err := s.device.WriteSector(extent.Region.ID, lba, data)
	if err != nil {
		return err
	}
	if !ok {
		return &types.ProtocolError{
			Operation: "write sector",
			Addressed: true,
			Region:    extent.Region.ID,
			Sector:    lba,
			Kind:      types.ErrWriteNotAcknowledged,
			Message:   "device did not acknowledge write",
		}
	}
	return nil
}

// checkAddressable applies the extent bounds check and then makes sure every
// absolute LBA fits the 32-bit sector field of the wire protocol.
func checkAddressable(extent types.Extent, start, count uint64) error {
	if err := extent.CheckRange(start, count); err != nil {
		return err
	}
	if count > 0 && extent.Absolute(start+count-1) > math.MaxUint32 {
		return &types.BoundsError{
			Target:   extent.Name,
			Start:    start,
			Count:    count,
			Capacity: extent.Capacity,
			Reason:   fmt.Sprintf("range %d+%d of %s ends beyond LBA %d", start, count, extent.Name, uint32(math.MaxUint32)),
		}
	}
	return nil
}
