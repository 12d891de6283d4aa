package services

import (
	"bytes"
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"time"

	"github.com/deploymenttheory/go-emmc/internal/interfaces"
	"github.com/deploymenttheory/go-emmc/internal/types"
)

// PatternSeed is XORed with the word index to build the stamp pattern.
const PatternSeed uint32 = 0x00C0FFEE

// TestPattern returns the stamp for the index-th sector of a round-trip range.
// Word w holds PatternSeed ^ (index*128 + w), little-endian.
func TestPattern(index uint64) []byte {
	buf := make([]byte, types.SectorSize)
	for w := 0; w < types.SectorWords; w++ {
		word := PatternSeed ^ uint32(index*types.SectorWords+uint64(w))
		binary.LittleEndian.PutUint32(buf[w*4:], word)
	}
	return buf
}

// Mismatch is the first differing byte of one verified sector.
type Mismatch struct {
	// Sector is extent-relative.
	Sector   uint64 `json:"sector" yaml:"sector"`
	Offset   int    `json:"offset" yaml:"offset"`
	Expected byte   `json:"expected" yaml:"expected"`
	Got      byte   `json:"got" yaml:"got"`
}

// RoundTripResult is the outcome of a completed round-trip test.
type RoundTripResult struct {
	Target     string        `json:"target" yaml:"target"`
	Region     string        `json:"region" yaml:"region"`
	Start      uint64        `json:"start" yaml:"start"`
	Count      uint64        `json:"count" yaml:"count"`
	Mismatches []Mismatch    `json:"mismatches" yaml:"mismatches"`
	Restored   bool          `json:"restored" yaml:"restored"`
	Elapsed    time.Duration `json:"elapsed" yaml:"elapsed"`
}

// Passed reports whether every stamped sector read back intact.
func (r *RoundTripResult) Passed() bool {
	return len(r.Mismatches) == 0
}

// RoundTripService runs the destructive snapshot/stamp/verify/restore test.
type RoundTripService struct {
	sectors *SectorIOService
}

// NewRoundTripService creates a round-trip verifier for device.
func NewRoundTripService(device interfaces.SectorDevice, opts ...Option) *RoundTripService {
	return &RoundTripService{sectors: NewSectorIOService(device, opts...)}
}

// Run tests count sectors of extent starting at start.
//
// The range is snapshotted, stamped with TestPattern, read back and compared,
// then restored from the snapshot whatever the comparison found. Cancellation
// is honoured only while snapshotting. A failed write while stamping or
// restoring aborts at once and the range may be left stamped.
func (s *RoundTripService) Run(ctx context.Context, extent types.Extent, start, count uint64) (*RoundTripResult, error) {
	if count == 0 {
		return nil, fmt.Errorf("round-trip count must be at least one sector")
	}
	if err := checkAddressable(extent, start, count); err != nil {
		return nil, err
	}

	cfg := s.sectors.config
	logger := cfg.Logger.With("target", extent.Name, "start", start, "count", count)
	started := time.Now()

	// Snapshot
	logger.Info("round-trip snapshot")
	snapshot := make([][]byte, count)
	tracker := newProgressTracker(cfg, extent.Name, PhaseSnapshot, count)
	for i := uint64(0); i < count; i++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		data, err := s.sectors.readSector(extent, start+i)
		if err != nil {
			return nil, fmt.Errorf("snapshot: %w", err)
		}
		snapshot[i] = data
		tracker.update(i + 1)
	}

	// Stamp
	logger.Info("round-trip stamp")
	tracker = newProgressTracker(cfg, extent.Name, PhaseStamp, count)
	for i := uint64(0); i < count; i++ {
		if err := s.sectors.writeSector(extent, start+i, TestPattern(i)); err != nil {
			logger.Error("stamp failed, range not restored", "sector", start+i, "error", err)
			return nil, fmt.Errorf("stamp: %w", err)
		}
		tracker.update(i + 1)
	}

	// Verify
	logger.Info("round-trip verify")
	result := &RoundTripResult{
		Target:     extent.Name,
		Region:     extent.Region.Name,
		Start:      start,
		Count:      count,
		Mismatches: []Mismatch{},
	}
	var verifyErr error
	tracker = newProgressTracker(cfg, extent.Name, PhaseVerify, count)
	for i := uint64(0); i < count; i++ {
		data, err := s.sectors.readSector(extent, start+i)
		if err != nil {
			verifyErr = fmt.Errorf("verify: %w", err)
			break
		}
		if m, ok := firstMismatch(start+i, TestPattern(i), data); ok {
			result.Mismatches = append(result.Mismatches, m)
		}
		tracker.update(i + 1)
	}

	// Restore
	logger.Info("round-trip restore")
	tracker = newProgressTracker(cfg, extent.Name, PhaseRestore, count)
	for i := uint64(0); i < count; i++ {
		if err := s.sectors.writeSector(extent, start+i, snapshot[i]); err != nil {
			logger.Error("restore failed", "sector", start+i, "error", err)
			return nil, errors.Join(verifyErr, fmt.Errorf("restore: %w", err))
		}
		tracker.update(i + 1)
	}
	result.Restored = true
	result.Elapsed = time.Since(started)

	if verifyErr != nil {
		return nil, verifyErr
	}

	logger.Info("round-trip complete", "passed", result.Passed(), "mismatches", len(result.Mismatches))
	return result, nil
}

// firstMismatch locates the first byte where got differs from want.
func firstMismatch(sector uint64, want, got []byte) (Mismatch, bool) {
	if bytes.Equal(want, got) {
		return Mismatch{}, false
	}
	for off := range want {
		if off >= len(got) || want[off] != got[off] {
			m := Mismatch{Sector: sector, Offset: off, Expected: want[off]}
			if off < len(got) {
				m.Got = got[off]
			}
			return m, true
		}
	}
	return Mismatch{Sector: sector, Offset: len(want)}, true
}
