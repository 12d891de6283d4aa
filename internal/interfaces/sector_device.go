// File: internal/interfaces/sector_device.go
package interfaces

import (
	"github.com/deploymenttheory/go-emmc/internal/types"
)

// SectorReader reads whole sectors from a device region
type SectorReader interface {
	// ReadSector returns exactly one 512-byte sector
	ReadSector(region types.RegionID, sector uint32) ([]byte, error)
}

// SectorWriter writes whole sectors to a device region
type SectorWriter interface {
	// WriteSector writes exactly one 512-byte sector. It reports false when the
	// device answered with anything other than the success token.
	WriteSector(region types.RegionID, sector uint32, data []byte) (bool, error)
}

// StatusReader reads the device status register
type StatusReader interface {
	// ExtCsd returns the raw 512-byte EXT_CSD register
	ExtCsd() ([]byte, error)
}

// Watchdog keeps the bootloader watchdog from resetting the device
type Watchdog interface {
	// KickWatchdog sends a watchdog reset; no reply is expected
	KickWatchdog() error
}

// SectorDevice is the full command set of a bootloader-mode eMMC device.
// Implementations issue one command at a time and are not safe for
// concurrent use.
type SectorDevice interface {
	SectorReader
	SectorWriter
	StatusReader
	Watchdog
}
