package disk

import (
	"errors"
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/deploymenttheory/go-emmc/internal/types"
)

// ErrReadOnly is returned when writing to an image opened read-only.
var ErrReadOnly = errors.New("image is read-only")

// Image is a sector-addressed backing store for one eMMC region, held either
// in a raw image file or in memory.
type Image struct {
	name     string
	file     *os.File
	mem      []byte
	size     int64
	readOnly bool
	mu       sync.RWMutex
	stats    ImageStatistics
}

// ImageStatistics tracks image access statistics
type ImageStatistics struct {
	SectorsRead    int64
	SectorsWritten int64
	BytesRead      int64
	BytesWritten   int64
}

// OpenImage opens a raw region image. Its size must be a whole number of
// sectors.
func OpenImage(path string, readOnly bool) (*Image, error) {
	flag := os.O_RDWR
	if readOnly {
		flag = os.O_RDONLY
	}

	file, err := os.OpenFile(path, flag, 0)
	if err != nil {
		return nil, fmt.Errorf("failed to open image: %w", err)
	}

	stat, err := file.Stat()
	if err != nil {
		file.Close()
		return nil, fmt.Errorf("failed to stat image: %w", err)
	}

	if stat.Size()%types.SectorSize != 0 {
		file.Close()
		return nil, fmt.Errorf("image %s is %d bytes, not a multiple of %d", path, stat.Size(), types.SectorSize)
	}

	return &Image{
		name:     path,
		file:     file,
		size:     stat.Size(),
		readOnly: readOnly,
	}, nil
}

// CreateImage creates a zero-filled image file of the given number of sectors.
func CreateImage(path string, sectors uint64) error {
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create image: %w", err)
	}
	defer file.Close()

	if err := file.Truncate(int64(sectors) * types.SectorSize); err != nil {
		return fmt.Errorf("failed to size image: %w", err)
	}
	return nil
}

// NewMemoryImage returns a zero-filled in-memory image.
func NewMemoryImage(name string, sectors uint64) *Image {
	mem := make([]byte, sectors*types.SectorSize)
	return &Image{name: name, mem: mem, size: int64(len(mem))}
}

// NewMemoryImageFrom wraps data as an in-memory image. data is used in place.
func NewMemoryImageFrom(name string, data []byte) (*Image, error) {
	if len(data)%types.SectorSize != 0 {
		return nil, fmt.Errorf("image %s is %d bytes, not a multiple of %d", name, len(data), types.SectorSize)
	}
	return &Image{name: name, mem: data, size: int64(len(data))}, nil
}

// Name returns the path or label of the image.
func (i *Image) Name() string {
	return i.name
}

// Size returns the image size in bytes.
func (i *Image) Size() int64 {
	return i.size
}

// Sectors returns the number of sectors in the image.
func (i *Image) Sectors() uint64 {
	return uint64(i.size / types.SectorSize)
}

// ReadSector returns a copy of sector lba.
func (i *Image) ReadSector(lba uint64) ([]byte, error) {
	off, err := i.offset(lba)
	if err != nil {
		return nil, err
	}

	buf := make([]byte, types.SectorSize)

	i.mu.Lock()
	defer i.mu.Unlock()

	if i.file != nil {
		if _, err := i.file.ReadAt(buf, off); err != nil && err != io.EOF {
			return nil, fmt.Errorf("failed to read sector %d of %s: %w", lba, i.name, err)
		}
	} else {
		copy(buf, i.mem[off:off+types.SectorSize])
	}

	i.stats.SectorsRead++
	i.stats.BytesRead += types.SectorSize
	return buf, nil
}

// WriteSector replaces sector lba with data, which must be one sector long.
func (i *Image) WriteSector(lba uint64, data []byte) error {
	if len(data) != types.SectorSize {
		return types.NewSizeMismatchError("sector payload", types.SectorSize, len(data))
	}
	if i.readOnly {
		return ErrReadOnly
	}
	off, err := i.offset(lba)
	if err != nil {
		return err
	}

	i.mu.Lock()
	defer i.mu.Unlock()

	if i.file != nil {
		if _, err := i.file.WriteAt(data, off); err != nil {
			return fmt.Errorf("failed to write sector %d of %s: %w", lba, i.name, err)
		}
	} else {
		copy(i.mem[off:off+types.SectorSize], data)
	}

	i.stats.SectorsWritten++
	i.stats.BytesWritten += types.SectorSize
	return nil
}

// GetStats returns a snapshot of the access statistics.
func (i *Image) GetStats() ImageStatistics {
	i.mu.RLock()
	defer i.mu.RUnlock()
	return i.stats
}

// PrintStats writes the access statistics to w.
func (i *Image) PrintStats(w io.Writer) {
	stats := i.GetStats()
	fmt.Fprintf(w, "=== Image %s ===\n", i.name)
	fmt.Fprintf(w, "Size: %d sectors (%.2f MiB)\n", i.Sectors(), types.SectorsToMiB(i.Sectors()))
	fmt.Fprintf(w, "Sectors read: %d (%d bytes)\n", stats.SectorsRead, stats.BytesRead)
	fmt.Fprintf(w, "Sectors written: %d (%d bytes)\n", stats.SectorsWritten, stats.BytesWritten)
}

// Sync flushes file-backed images to stable storage.
func (i *Image) Sync() error {
	if i.file == nil || i.readOnly {
		return nil
	}
	return i.file.Sync()
}

// Close closes the image file.
func (i *Image) Close() error {
	if i.file != nil {
		return i.file.Close()
	}
	return nil
}

func (i *Image) offset(lba uint64) (int64, error) {
	if lba >= i.Sectors() {
		return 0, &types.BoundsError{
			Target:   i.name,
			Start:    lba,
			Count:    1,
			Capacity: i.Sectors(),
			Reason:   fmt.Sprintf("sector %d beyond image %s (%d sectors)", lba, i.name, i.Sectors()),
		}
	}
	return int64(lba) * types.SectorSize, nil
}
