package services

import (
	"time"

	"github.com/deploymenttheory/go-emmc/internal/types"
)

// Phase names the stage of a sector operation.
type Phase string

// Operation phases
const (
	PhaseRead     Phase = "read"
	PhaseWrite    Phase = "write"
	PhaseSnapshot Phase = "snapshot"
	PhaseStamp    Phase = "stamp"
	PhaseVerify   Phase = "verify"
	PhaseRestore  Phase = "restore"
)

// Progress describes how far a sector operation has got.
// It is informational; nothing about correctness depends on it.
type Progress struct {
	// Target is the region or partition being accessed
	Target string

	// Phase is the current stage
	Phase Phase

	// Done is the number of sectors completed in this phase
	Done uint64

	// Total is the number of sectors in this phase
	Total uint64

	// Elapsed is the time since the phase started
	Elapsed time.Duration
}

// Percentage returns completion in the range 0..100.
func (p Progress) Percentage() float64 {
	if p.Total == 0 {
		return 100
	}
	return float64(p.Done) * 100 / float64(p.Total)
}

// BytesDone returns the number of bytes transferred.
func (p Progress) BytesDone() uint64 {
	return p.Done * types.SectorSize
}

// BytesPerSecond returns the average transfer rate.
func (p Progress) BytesPerSecond() float64 {
	if p.Elapsed <= 0 {
		return 0
	}
	return float64(p.BytesDone()) / p.Elapsed.Seconds()
}

// ETA estimates the time left at the average rate so far.
func (p Progress) ETA() time.Duration {
	if p.Done == 0 || p.Done >= p.Total {
		return 0
	}
	perSector := p.Elapsed / time.Duration(p.Done)
	return perSector * time.Duration(p.Total-p.Done)
}

// Complete reports whether every sector of the phase is done.
func (p Progress) Complete() bool {
	return p.Done >= p.Total
}

// ProgressCallback receives progress updates. It is called synchronously
// between sector transactions and should return quickly.
type ProgressCallback func(Progress)

// progressTracker emits updates every interval sectors and on completion.
type progressTracker struct {
	callback ProgressCallback
	interval uint64
	target   string
	phase    Phase
	total    uint64
	started  time.Time
}

func newProgressTracker(cfg Config, target string, phase Phase, total uint64) *progressTracker {
	return &progressTracker{
		callback: cfg.ProgressCallback,
		interval: cfg.ProgressInterval,
		target:   target,
		phase:    phase,
		total:    total,
		started:  time.Now(),
	}
}

func (t *progressTracker) update(done uint64) {
	if t.callback == nil {
		return
	}
	if done != t.total && (t.interval == 0 || done%t.interval != 0) {
		return
	}
	t.callback(Progress{
		Target:  t.target,
		Phase:   t.phase,
		Done:    done,
		Total:   t.total,
		Elapsed: time.Since(t.started),
	})
}
