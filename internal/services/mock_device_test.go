package services

import (
	"errors"
	"fmt"

	"github.com/deploymenttheory/go-emmc/internal/types"
)

type sectorAddr struct {
	region types.RegionID
	sector uint32
}

// mockDevice is an in-memory eMMC with per-sector fault injection.
type mockDevice struct {
	regions map[types.RegionID][]byte
	extCsd  []byte

	reads  []sectorAddr
	writes []sectorAddr
	kicks  int

	nack        map[sectorAddr]bool
	failRead    map[sectorAddr]error
	corruptRead map[sectorAddr]int
}

func newMockDevice(bootSectors, userSectors int) *mockDevice {
	return &mockDevice{
		regions: map[types.RegionID][]byte{
			types.RegionIDBoot0:    make([]byte, bootSectors*types.SectorSize),
			types.RegionIDBoot1:    make([]byte, bootSectors*types.SectorSize),
			types.RegionIDUserData: make([]byte, userSectors*types.SectorSize),
		},
		extCsd:      make([]byte, types.ExtCsdSize),
		nack:        map[sectorAddr]bool{},
		failRead:    map[sectorAddr]error{},
		corruptRead: map[sectorAddr]int{},
	}
}

// fill writes a recognisable byte pattern over a whole region.
func (m *mockDevice) fill(region types.RegionID) {
	data := m.regions[region]
	for i := range data {
		data[i] = byte(i/types.SectorSize) ^ byte(i)
	}
}

func (m *mockDevice) sector(region types.RegionID, sector uint32) []byte {
	off := int(sector) * types.SectorSize
	return m.regions[region][off : off+types.SectorSize]
}

func (m *mockDevice) ioCount() int {
	return len(m.reads) + len(m.writes)
}

func (m *mockDevice) ReadSector(region types.RegionID, sector uint32) ([]byte, error) {
	addr := sectorAddr{region, sector}
	m.reads = append(m.reads, addr)
	if err := m.failRead[addr]; err != nil {
		return nil, err
	}
	data, ok := m.regions[region]
	if !ok || (int(sector)+1)*types.SectorSize > len(data) {
		return nil, fmt.Errorf("mock: sector %d outside region %d", sector, region)
	}
	out := append([]byte(nil), m.sector(region, sector)...)
	if off, ok := m.corruptRead[addr]; ok {
		out[off] ^= 0xFF
	}
	return out, nil
}

func (m *mockDevice) WriteSector(region types.RegionID, sector uint32, data []byte) (bool, error) {
	addr := sectorAddr{region, sector}
	m.writes = append(m.writes, addr)
	if len(data) != types.SectorSize {
		return false, errors.New("mock: bad payload size")
	}
	if m.nack[addr] {
		return false, nil
	}
	regionData, ok := m.regions[region]
	if !ok || (int(sector)+1)*types.SectorSize > len(regionData) {
		return false, fmt.Errorf("mock: sector %d outside region %d", sector, region)
	}
	copy(m.sector(region, sector), data)
	return true, nil
}

func (m *mockDevice) ExtCsd() ([]byte, error) {
	return append([]byte(nil), m.extCsd...), nil
}

func (m *mockDevice) KickWatchdog() error {
	m.kicks++
	return nil
}
