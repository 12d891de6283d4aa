package types

// EXT_CSD register layout (JESD84-B51 section 7.4)
// Only the fields needed to size the regions are decoded.

const (
	// ExtCsdSize is the size of the EXT_CSD register in bytes.
	ExtCsdSize = 512

	// ExtCsdRevOffset is the offset of EXT_CSD_REV [192].
	ExtCsdRevOffset = 192
	// ExtCsdCardTypeOffset is the offset of DEVICE_TYPE/CARD_TYPE [196].
	ExtCsdCardTypeOffset = 196
	// ExtCsdSecCountOffset is the offset of SEC_COUNT [215:212], little-endian.
	ExtCsdSecCountOffset = 212
	// ExtCsdBootSizeMultOffset is the offset of BOOT_SIZE_MULT [226].
	ExtCsdBootSizeMultOffset = 226

	// BootSizeUnit is the boot partition size granularity (128 KiB).
	BootSizeUnit = 128 * 1024
)

// ExtCsdInfo holds the decoded EXT_CSD fields.
// It is produced once per session and never mutated; every region bound is
// derived from it.
type ExtCsdInfo struct {
	// EXT_CSD structure revision (EXT_CSD_REV).
	Revision uint8 `json:"ext_csd_rev" yaml:"ext_csd_rev"`
	// Supported bus modes (CARD_TYPE).
	CardType uint8 `json:"card_type" yaml:"card_type"`
	// Boot partition size in 128 KiB units (BOOT_SIZE_MULT).
	BootSizeMultiplier uint8 `json:"boot_size_mult" yaml:"boot_size_mult"`
	// User data area size in 512-byte sectors (SEC_COUNT).
	UserSectorCount uint32 `json:"sec_count" yaml:"sec_count"`
}

// BootRegionSectors returns the size of each boot partition in sectors.
func (e ExtCsdInfo) BootRegionSectors() uint64 {
	return uint64(e.BootSizeMultiplier) * BootSizeUnit / SectorSize
}

// Capacity returns the sector count of the given region.
func (e ExtCsdInfo) Capacity(region Region) uint64 {
	switch region.ID {
	case RegionIDBoot0, RegionIDBoot1:
		return e.BootRegionSectors()
	case RegionIDUserData:
		return uint64(e.UserSectorCount)
	default:
		return 0
	}
}

// RegionCapacities maps each region name to its sector count.
func (e ExtCsdInfo) RegionCapacities() map[string]uint64 {
	capacities := make(map[string]uint64, 3)
	for _, r := range Regions() {
		capacities[r.Name] = e.Capacity(r)
	}
	return capacities
}

// RevisionName returns the eMMC specification version for the EXT_CSD revision.
func (e ExtCsdInfo) RevisionName() string {
	switch e.Revision {
	case 0:
		return "MMC 4.0"
	case 1:
		return "MMC 4.1"
	case 2:
		return "MMC 4.2"
	case 3:
		return "MMC 4.3"
	case 5:
		return "MMC 4.41"
	case 6:
		return "MMC 4.5"
	case 7:
		return "MMC 5.0"
	case 8:
		return "MMC 5.1"
	default:
		return "unknown"
	}
}
