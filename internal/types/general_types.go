// Package types implements the data structures shared by the eMMC protocol,
// decoders and sector services.
// Register layouts follow JEDEC JESD84-B51 (eMMC 5.1); partition tables
// follow the UEFI Specification 2.10, chapter 5.
package types

import (
	"fmt"
	"strings"
)

// SectorSize is the fixed transfer unit of every sector command, in bytes.
const SectorSize = 512

// SectorWords is the number of 32-bit words in one sector.
const SectorWords = SectorSize / 4

// RegionID is the protocol identifier of a physical eMMC address space.
// Values are fixed by the stage2 bootloader and must never be renumbered.
type RegionID uint32

const (
	// RegionIDUserData selects the user data area (EMMC_PART_USER).
	RegionIDUserData RegionID = 0
	// RegionIDBoot0 selects boot partition 1 (EMMC_PART_BOOT0).
	RegionIDBoot0 RegionID = 1
	// RegionIDBoot1 selects boot partition 2 (EMMC_PART_BOOT1).
	RegionIDBoot1 RegionID = 2
)

// Region is one of the three physically distinct address spaces of the device.
// Its size is not intrinsic; see ExtCsdInfo.Capacity.
type Region struct {
	Name string   `json:"name" yaml:"name"`
	ID   RegionID `json:"id" yaml:"id"`
}

// Well-known regions.
var (
	RegionBoot0    = Region{Name: "boot0", ID: RegionIDBoot0}
	RegionBoot1    = Region{Name: "boot1", ID: RegionIDBoot1}
	RegionUserData = Region{Name: "userdata", ID: RegionIDUserData}
)

// Regions returns all regions in display order.
func Regions() []Region {
	return []Region{RegionBoot0, RegionBoot1, RegionUserData}
}

// RegionNames returns the names accepted by ParseRegion.
func RegionNames() []string {
	names := make([]string, 0, 3)
	for _, r := range Regions() {
		names = append(names, r.Name)
	}
	return names
}

// ParseRegion resolves a region by name. Matching is case-insensitive.
func ParseRegion(name string) (Region, error) {
	for _, r := range Regions() {
		if strings.EqualFold(r.Name, strings.TrimSpace(name)) {
			return r, nil
		}
	}
	return Region{}, fmt.Errorf("unknown region %q (valid: %s)", name, strings.Join(RegionNames(), ", "))
}

// String returns the region name.
func (r Region) String() string {
	return r.Name
}

// SectorsToMiB converts a sector count to mebibytes for display.
func SectorsToMiB(sectors uint64) float64 {
	return float64(sectors*SectorSize) / (1024 * 1024)
}

// SectorsFor returns the number of sectors needed to hold size bytes.
func SectorsFor(size int64) uint64 {
	if size <= 0 {
		return 0
	}
	return (uint64(size) + SectorSize - 1) / SectorSize
}
