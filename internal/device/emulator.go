package device

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"github.com/deploymenttheory/go-emmc/internal/disk"
	"github.com/deploymenttheory/go-emmc/internal/parsers/extcsd"
	"github.com/deploymenttheory/go-emmc/internal/protocol"
	"github.com/deploymenttheory/go-emmc/internal/types"
)

// Image file names inside an emulator directory
const (
	Boot0ImageName    = "boot0.img"
	Boot1ImageName    = "boot1.img"
	UserDataImageName = "userdata.img"
	ExtCsdFileName    = "ext_csd.bin"
)

// Emulator is an in-process device that speaks the bootloader protocol over
// an io.ReadWriteCloser. Commands written to it are executed against region
// images and their replies queued for reading. A Read with nothing queued
// returns io.EOF, as a serial read timeout would.
type Emulator struct {
	mu      sync.Mutex
	regions map[types.RegionID]*disk.Image
	extCsd  []byte
	in      bytes.Buffer
	out     bytes.Buffer
	logger  *slog.Logger

	readChunk   int
	nackWrites  map[sectorKey]bool
	corruptRead map[sectorKey]int

	stats EmulatorStatistics
}

// EmulatorStatistics counts executed commands
type EmulatorStatistics struct {
	Reads          int
	Writes         int
	NackedWrites   int
	ExtCsdReads    int
	WatchdogResets int
	Dropped        int
}

type sectorKey struct {
	region types.RegionID
	sector uint32
}

// EmulatorOption configures an Emulator.
type EmulatorOption func(*Emulator)

// WithEmulatorLogger sets the logger for executed commands.
func WithEmulatorLogger(logger *slog.Logger) EmulatorOption {
	return func(e *Emulator) {
		if logger != nil {
			e.logger = logger
		}
	}
}

// WithReadChunk limits each Read to n bytes, fragmenting replies the way a
// USB endpoint with small packets does.
func WithReadChunk(n int) EmulatorOption {
	return func(e *Emulator) {
		if n > 0 {
			e.readChunk = n
		}
	}
}

// WithNackWrite makes writes to the given sector reply with a wrong
// acknowledgement and leave the sector unchanged.
func WithNackWrite(region types.RegionID, sector uint32) EmulatorOption {
	return func(e *Emulator) {
		e.nackWrites[sectorKey{region, sector}] = true
	}
}

// WithCorruptRead flips the byte at offset in every read of the given sector.
func WithCorruptRead(region types.RegionID, sector uint32, offset int) EmulatorOption {
	return func(e *Emulator) {
		e.corruptRead[sectorKey{region, sector}] = offset % types.SectorSize
	}
}

// NewEmulator builds an emulator over the three region images. When extCsd
// is nil a register is synthesised from the image sizes; the boot images must
// then be a whole number of 128 KiB units.
func NewEmulator(boot0, boot1, userdata *disk.Image, extCsd []byte, opts ...EmulatorOption) (*Emulator, error) {
	if boot0 == nil || boot1 == nil || userdata == nil {
		return nil, errors.New("emulator needs boot0, boot1 and userdata images")
	}

	if extCsd == nil {
		synth, err := synthesizeExtCsd(boot0, userdata)
		if err != nil {
			return nil, err
		}
		extCsd = synth
	}
	if len(extCsd) != types.ExtCsdSize {
		return nil, types.NewSizeMismatchError("ext_csd", types.ExtCsdSize, len(extCsd))
	}

	e := &Emulator{
		regions: map[types.RegionID]*disk.Image{
			types.RegionIDBoot0:    boot0,
			types.RegionIDBoot1:    boot1,
			types.RegionIDUserData: userdata,
		},
		extCsd:      extCsd,
		logger:      slog.New(slog.NewTextHandler(io.Discard, nil)),
		nackWrites:  map[sectorKey]bool{},
		corruptRead: map[sectorKey]int{},
	}
	for _, opt := range opts {
		opt(e)
	}
	return e, nil
}

// NewMemoryEmulator builds an emulator over zeroed in-memory images.
func NewMemoryEmulator(bootSectors, userSectors uint64, opts ...EmulatorOption) (*Emulator, error) {
	return NewEmulator(
		disk.NewMemoryImage("boot0", bootSectors),
		disk.NewMemoryImage("boot1", bootSectors),
		disk.NewMemoryImage("userdata", userSectors),
		nil,
		opts...,
	)
}

// OpenEmulatorDir opens boot0.img, boot1.img and userdata.img in dir, plus
// ext_csd.bin when present.
func OpenEmulatorDir(dir string, opts ...EmulatorOption) (*Emulator, error) {
	names := []string{Boot0ImageName, Boot1ImageName, UserDataImageName}
	images := make([]*disk.Image, 0, len(names))
	closeAll := func() {
		for _, img := range images {
			img.Close()
		}
	}

	for _, name := range names {
		img, err := disk.OpenImage(filepath.Join(dir, name), false)
		if err != nil {
			closeAll()
			return nil, err
		}
		images = append(images, img)
	}

	var extCsd []byte
	raw, err := os.ReadFile(filepath.Join(dir, ExtCsdFileName))
	switch {
	case err == nil:
		extCsd = raw
	case !errors.Is(err, os.ErrNotExist):
		closeAll()
		return nil, fmt.Errorf("failed to read %s: %w", ExtCsdFileName, err)
	}

	e, err := NewEmulator(images[0], images[1], images[2], extCsd, opts...)
	if err != nil {
		closeAll()
		return nil, err
	}
	return e, nil
}

// CreateEmulatorDir creates zero-filled region images in dir.
func CreateEmulatorDir(dir string, bootSectors, userSectors uint64) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create emulator directory: %w", err)
	}
	sizes := map[string]uint64{
		Boot0ImageName:    bootSectors,
		Boot1ImageName:    bootSectors,
		UserDataImageName: userSectors,
	}
	for name, sectors := range sizes {
		if err := disk.CreateImage(filepath.Join(dir, name), sectors); err != nil {
			return err
		}
	}
	return nil
}

func synthesizeExtCsd(boot, userdata *disk.Image) ([]byte, error) {
	unit := int64(types.BootSizeUnit)
	if boot.Size()%unit != 0 || boot.Size()/unit > 255 {
		return nil, fmt.Errorf("boot image of %d bytes cannot be described by BOOT_SIZE_MULT", boot.Size())
	}
	if userdata.Sectors() > 0xFFFFFFFF {
		return nil, fmt.Errorf("userdata image of %d sectors does not fit SEC_COUNT", userdata.Sectors())
	}
	return extcsd.Encode(types.ExtCsdInfo{
		Revision:           8,
		CardType:           0x57,
		BootSizeMultiplier: uint8(boot.Size() / unit),
		UserSectorCount:    uint32(userdata.Sectors()),
	}), nil
}

// Write accepts command bytes in any fragmentation and executes every
// command that is complete.
func (e *Emulator) Write(p []byte) (int, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.in.Write(p)
	for e.step() {
	}
	return len(p), nil
}

// Read returns queued reply bytes, or io.EOF when none are queued.
func (e *Emulator) Read(p []byte) (int, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.out.Len() == 0 {
		return 0, io.EOF
	}
	if e.readChunk > 0 && len(p) > e.readChunk {
		p = p[:e.readChunk]
	}
	return e.out.Read(p)
}

// Close flushes and closes the region images.
func (e *Emulator) Close() error {
	var errs []error
	for _, img := range e.images() {
		if err := img.Sync(); err != nil {
			errs = append(errs, fmt.Errorf("failed to sync %s: %w", img.Name(), err))
		}
		if err := img.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// PrintStats writes the command counters and per-image access statistics
// to w.
func (e *Emulator) PrintStats(w io.Writer) {
	stats := e.Stats()
	fmt.Fprintf(w, "=== Emulator ===\n")
	fmt.Fprintf(w, "Reads: %d, writes: %d (%d nacked), EXT_CSD reads: %d, watchdog resets: %d, dropped: %d\n",
		stats.Reads, stats.Writes, stats.NackedWrites, stats.ExtCsdReads, stats.WatchdogResets, stats.Dropped)
	for _, img := range e.images() {
		img.PrintStats(w)
	}
}

func (e *Emulator) images() []*disk.Image {
	return []*disk.Image{
		e.regions[types.RegionIDBoot0],
		e.regions[types.RegionIDBoot1],
		e.regions[types.RegionIDUserData],
	}
}

// Image returns the backing image of a region.
func (e *Emulator) Image(region types.RegionID) *disk.Image {
	return e.regions[region]
}

// Stats returns a snapshot of the command counters.
func (e *Emulator) Stats() EmulatorStatistics {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.stats
}

// step executes one buffered command if it is complete. Leading bytes that
// are not the magic are discarded one at a time so the stream resynchronises.
func (e *Emulator) step() bool {
	buf := e.in.Bytes()
	if len(buf) < 2*protocol.FieldSize {
		return false
	}

	if protocol.ByteOrder.Uint32(buf[0:4]) != protocol.Magic {
		e.in.Next(1)
		e.stats.Dropped++
		return true
	}

	cmd := protocol.ByteOrder.Uint32(buf[4:8])
	args := protocol.ArgCount(cmd)
	if args < 0 {
		e.logger.Warn("emulator dropped unknown command", "code", fmt.Sprintf("0x%04X", cmd))
		e.in.Next(2 * protocol.FieldSize)
		e.stats.Dropped++
		return true
	}
	need := (2 + args) * protocol.FieldSize
	if cmd == protocol.CmdWriteSector {
		need += types.SectorSize
	}
	if len(buf) < need {
		return false
	}

	frame := e.in.Next(need)
	fields := frame[8:]
	switch cmd {
	case protocol.CmdReadSector:
		e.readSector(types.RegionID(protocol.ByteOrder.Uint32(fields[0:4])), protocol.ByteOrder.Uint32(fields[4:8]))
	case protocol.CmdWriteSector:
		e.writeSector(types.RegionID(protocol.ByteOrder.Uint32(fields[0:4])), protocol.ByteOrder.Uint32(fields[4:8]), fields[8:])
	case protocol.CmdGetExtCsd:
		e.stats.ExtCsdReads++
		e.out.Write(e.extCsd)
	case protocol.CmdWatchdogReset:
		e.stats.WatchdogResets++
	}
	return true
}

func (e *Emulator) readSector(region types.RegionID, sector uint32) {
	img, ok := e.regions[region]
	if !ok {
		e.logger.Warn("emulator read from unknown region", "region", region)
		return
	}
	data, err := img.ReadSector(uint64(sector))
	if err != nil {
		// A real device stays silent; the host sees a short read.
		e.logger.Warn("emulator read failed", "region", region, "sector", sector, "error", err)
		return
	}
	if off, ok := e.corruptRead[sectorKey{region, sector}]; ok {
		data[off] ^= 0xFF
	}
	e.stats.Reads++
	e.out.Write(data)
}

func (e *Emulator) writeSector(region types.RegionID, sector uint32, data []byte) {
	reply := make([]byte, protocol.AckSize)

	img, ok := e.regions[region]
	switch {
	case !ok:
		e.logger.Warn("emulator write to unknown region", "region", region)
		e.stats.NackedWrites++
	case e.nackWrites[sectorKey{region, sector}]:
		e.stats.NackedWrites++
	default:
		if err := img.WriteSector(uint64(sector), data); err != nil {
			e.logger.Warn("emulator write failed", "region", region, "sector", sector, "error", err)
			e.stats.NackedWrites++
			break
		}
		e.stats.Writes++
		protocol.ByteOrder.PutUint32(reply, protocol.WriteAck)
	}
	e.out.Write(reply)
}
