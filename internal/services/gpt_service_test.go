package services

import (
	"context"
	"encoding/binary"
	"testing"
	"unicode/utf16"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/deploymenttheory/go-emmc/internal/types"
)

// writeTestGPT lays out a protective MBR, header and entry array on the mock
// userdata region. Names are placed in consecutive slots; "" leaves a slot
// unused.
func writeTestGPT(t *testing.T, dev *mockDevice, count, entrySize uint32, names []string) {
	t.Helper()

	mbr := dev.sector(types.RegionIDUserData, 0)
	mbr[446+4] = types.MBRProtectiveType
	mbr[510], mbr[511] = 0x55, 0xAA

	header := dev.sector(types.RegionIDUserData, 1)
	copy(header[0:8], types.GPTSignature)
	binary.LittleEndian.PutUint32(header[8:12], 0x00010000)
	binary.LittleEndian.PutUint32(header[12:16], 92)
	binary.LittleEndian.PutUint64(header[72:80], 2)
	binary.LittleEndian.PutUint32(header[80:84], count)
	binary.LittleEndian.PutUint32(header[84:88], entrySize)

	linux := uuid.MustParse("0fc63daf-8483-4772-8e79-3d69d8477de4")
	userdata := dev.regions[types.RegionIDUserData]
	for i, name := range names {
		if name == "" {
			continue
		}
		entry := userdata[2*512+i*int(entrySize):]
		entry[0], entry[1], entry[2], entry[3] = linux[3], linux[2], linux[1], linux[0]
		entry[4], entry[5], entry[6], entry[7] = linux[5], linux[4], linux[7], linux[6]
		copy(entry[8:16], linux[8:])
		binary.LittleEndian.PutUint64(entry[32:40], uint64(100*(i+1)))
		binary.LittleEndian.PutUint64(entry[40:48], uint64(100*(i+1)+49))
		for j, r := range utf16.Encode([]rune(name)) {
			binary.LittleEndian.PutUint16(entry[56+j*2:], r)
		}
	}
}

func TestGPTService_ReadTable(t *testing.T) {
	dev := newMockDevice(16, 64)
	writeTestGPT(t, dev, 128, 128, []string{"boot_a", "", "rootfs"})
	svc := NewGPTService(dev)

	snap, err := svc.ReadTable(context.Background())
	require.NoError(t, err)

	// LBA 0, LBA 1 and 32 entry sectors
	assert.Len(t, dev.reads, 34)
	assert.Equal(t, sectorAddr{types.RegionIDUserData, 2}, dev.reads[2])
	assert.Len(t, snap.Entries, 32*512)
	assert.Len(t, snap.Raw(), 34*512)
	assert.Equal(t, dev.regions[types.RegionIDUserData][:34*512], snap.Raw())

	require.Len(t, snap.Table.Partitions, 2)
	assert.Equal(t, "boot_a", snap.Table.Partitions[0].Name)
	assert.Equal(t, 2, snap.Table.Partitions[1].Index)
	assert.Equal(t, "Linux Filesystem", snap.Table.Partitions[1].TypeName)
	assert.Equal(t, uint64(300), snap.Table.Partitions[1].FirstLBA)
	assert.True(t, snap.Table.MBR.IsProtective())
}

func TestGPTService_ReadTableIsReproducible(t *testing.T) {
	dev := newMockDevice(16, 64)
	writeTestGPT(t, dev, 4, 128, []string{"a", "b"})
	svc := NewGPTService(dev)

	first, err := svc.ReadTable(context.Background())
	require.NoError(t, err)
	second, err := svc.ReadTable(context.Background())
	require.NoError(t, err)

	assert.Equal(t, first.Raw(), second.Raw())
	assert.Equal(t, first.Table, second.Table)
	assert.Len(t, dev.reads, 6, "no caching between reads")
}

func TestGPTService_NoGPT(t *testing.T) {
	dev := newMockDevice(16, 64)
	svc := NewGPTService(dev)

	_, err := svc.ReadTable(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, types.ErrInvalidSignature)
	assert.Len(t, dev.reads, 2)
}

func TestGPTService_EntryArrayCapped(t *testing.T) {
	dev := newMockDevice(16, MaxEntryArraySectors+2)
	writeTestGPT(t, dev, 1<<24, 128, []string{"only"})
	svc := NewGPTService(dev)

	snap, err := svc.ReadTable(context.Background())
	require.NoError(t, err)

	assert.Len(t, dev.reads, 2+MaxEntryArraySectors)
	assert.Equal(t, []string{"only"}, snap.Table.Names())
}

func TestExtCsdService_Read(t *testing.T) {
	dev := newMockDevice(16, 16)
	dev.extCsd[192] = 8
	dev.extCsd[226] = 4
	binary.LittleEndian.PutUint32(dev.extCsd[212:216], 7634944)
	svc := NewExtCsdService(dev)

	snap, err := svc.Read()
	require.NoError(t, err)

	assert.Len(t, snap.Raw, 512)
	assert.Equal(t, uint64(1024), snap.Info.BootRegionSectors())
	assert.Equal(t, uint64(7634944), snap.Info.Capacity(types.RegionUserData))
}

func TestExtCsdService_BadRegister(t *testing.T) {
	dev := newMockDevice(16, 16)
	dev.extCsd = dev.extCsd[:100]
	svc := NewExtCsdService(dev)

	_, err := svc.Read()
	assert.ErrorIs(t, err, types.ErrSizeMismatch)
}
