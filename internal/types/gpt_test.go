package types

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestGptHeader(t *testing.T) {
	h := GptHeader{Revision: 0x00010000, NumberOfPartitionEntries: 128, SizeOfPartitionEntry: 128}
	assert.Equal(t, "1.0", h.RevisionString())
	assert.Equal(t, uint64(32), h.EntryArraySectors())

	h.NumberOfPartitionEntries = 5
	assert.Equal(t, uint64(2), h.EntryArraySectors())
}

func TestPartitionEntrySize(t *testing.T) {
	p := PartitionEntry{FirstLBA: 2048, LastLBA: 4095}
	assert.Equal(t, int64(2048), p.SizeSectors())
	assert.Equal(t, 1.0, p.SizeMiB())

	inverted := PartitionEntry{FirstLBA: 10, LastLBA: 5}
	assert.Equal(t, int64(-4), inverted.SizeSectors())
}

func TestProtectiveMBR(t *testing.T) {
	assert.True(t, ProtectiveMBR{BootSignature: 0xAA55, OSType: 0xEE}.IsProtective())
	assert.False(t, ProtectiveMBR{BootSignature: 0xAA55, OSType: 0x83}.IsProtective())
	assert.False(t, ProtectiveMBR{OSType: 0xEE}.IsProtective())
}

func TestGptTableNames(t *testing.T) {
	table := &GptTable{Partitions: []PartitionEntry{{Name: "boot_a"}, {Name: "system"}}}
	assert.Equal(t, []string{"boot_a", "system"}, table.Names())
	assert.Empty(t, (&GptTable{}).Names())
}
