package gpt

import (
	"encoding/binary"
	"testing"
	"unicode/utf16"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/deploymenttheory/go-emmc/internal/types"
)

type testPartition struct {
	typeGUID   string
	uniqueGUID string
	firstLBA   uint64
	lastLBA    uint64
	attributes uint64
	name       string
}

// guidToBytes converts a uuid.UUID into the on-disk GPT byte order.
func guidToBytes(u uuid.UUID) [16]byte {
	var b [16]byte
	b[0], b[1], b[2], b[3] = u[3], u[2], u[1], u[0]
	b[4], b[5] = u[5], u[4]
	b[6], b[7] = u[7], u[6]
	copy(b[8:], u[8:])
	return b
}

// parseUUIDStringToGPTBytes parses a UUID string into GPT byte order.
func parseUUIDStringToGPTBytes(t *testing.T, uuidStr string) [16]byte {
	t.Helper()
	parsed, err := uuid.Parse(uuidStr)
	require.NoError(t, err)
	return guidToBytes(parsed)
}

// createGPTPartitionName encodes a name into the 72-byte UTF-16LE field.
func createGPTPartitionName(name string) [72]byte {
	var buf [72]byte
	encoded := utf16.Encode([]rune(name))
	for i, r := range encoded {
		if i*2+1 >= 72 {
			break
		}
		binary.LittleEndian.PutUint16(buf[i*2:], r)
	}
	return buf
}

func createTestEntry(t *testing.T, p testPartition) []byte {
	t.Helper()
	entry := make([]byte, types.GPTEntrySize)
	if p.typeGUID != "" {
		typeBytes := parseUUIDStringToGPTBytes(t, p.typeGUID)
		copy(entry[0:16], typeBytes[:])
	}
	if p.uniqueGUID != "" {
		uniqueBytes := parseUUIDStringToGPTBytes(t, p.uniqueGUID)
		copy(entry[16:32], uniqueBytes[:])
	}
	binary.LittleEndian.PutUint64(entry[32:40], p.firstLBA)
	binary.LittleEndian.PutUint64(entry[40:48], p.lastLBA)
	binary.LittleEndian.PutUint64(entry[48:56], p.attributes)
	name := createGPTPartitionName(p.name)
	copy(entry[56:128], name[:])
	return entry
}

func createTestHeader(t *testing.T, count, entrySize uint32) []byte {
	t.Helper()
	sector := make([]byte, types.SectorSize)
	copy(sector[0:8], types.GPTSignature)
	binary.LittleEndian.PutUint32(sector[8:12], 0x00010000)
	binary.LittleEndian.PutUint32(sector[12:16], types.GPTHeaderFieldsSize)
	binary.LittleEndian.PutUint32(sector[16:20], 0xDEADBEEF)
	binary.LittleEndian.PutUint64(sector[24:32], 1)
	binary.LittleEndian.PutUint64(sector[32:40], 30535679)
	binary.LittleEndian.PutUint64(sector[40:48], 34)
	binary.LittleEndian.PutUint64(sector[48:56], 30535646)
	disk := parseUUIDStringToGPTBytes(t, "11223344-5566-7788-99aa-bbccddeeff00")
	copy(sector[56:72], disk[:])
	binary.LittleEndian.PutUint64(sector[72:80], 2)
	binary.LittleEndian.PutUint32(sector[80:84], count)
	binary.LittleEndian.PutUint32(sector[84:88], entrySize)
	binary.LittleEndian.PutUint32(sector[88:92], 0xCAFEF00D)
	return sector
}

func createTestMBR() []byte {
	sector := make([]byte, types.SectorSize)
	sector[446+4] = types.MBRProtectiveType
	binary.LittleEndian.PutUint32(sector[446+8:], 1)
	binary.LittleEndian.PutUint32(sector[446+12:], 0xFFFFFFFF)
	sector[510], sector[511] = 0x55, 0xAA
	return sector
}

func TestDecodeHeader(t *testing.T) {
	header, err := DecodeHeader(createTestHeader(t, 128, 128))
	require.NoError(t, err)

	assert.Equal(t, "EFI PART", header.Signature)
	assert.Equal(t, "1.0", header.RevisionString())
	assert.Equal(t, uint32(92), header.HeaderSize)
	assert.Equal(t, uint32(0xDEADBEEF), header.HeaderCRC32)
	assert.Equal(t, uint64(1), header.CurrentLBA)
	assert.Equal(t, uint64(30535679), header.BackupLBA)
	assert.Equal(t, uint64(34), header.FirstUsableLBA)
	assert.Equal(t, uint64(30535646), header.LastUsableLBA)
	assert.Equal(t, "11223344-5566-7788-99aa-bbccddeeff00", header.DiskGUID.String())
	assert.Equal(t, uint64(2), header.PartitionEntryLBA)
	assert.Equal(t, uint32(128), header.NumberOfPartitionEntries)
	assert.Equal(t, uint32(128), header.SizeOfPartitionEntry)
	assert.Equal(t, uint32(0xCAFEF00D), header.PartitionEntryArrayCRC32)
	assert.Equal(t, uint64(32), header.EntryArraySectors())
}

func TestDecodeHeader_Deterministic(t *testing.T) {
	sector := createTestHeader(t, 64, 128)

	first, err := DecodeHeader(sector)
	require.NoError(t, err)
	second, err := DecodeHeader(append([]byte(nil), sector...))
	require.NoError(t, err)

	assert.Equal(t, first, second)
}

func TestDecodeHeader_InvalidSignature(t *testing.T) {
	testCases := []struct {
		name      string
		signature string
	}{
		{"Zeroed", "\x00\x00\x00\x00\x00\x00\x00\x00"},
		{"Lowercase", "efi part"},
		{"One Byte Off", "EFI PARU"},
		{"MBR Garbage", "\xeb\x3c\x90MSDOS"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			sector := createTestHeader(t, 128, 128)
			copy(sector[0:8], tc.signature)

			_, err := DecodeHeader(sector)
			require.Error(t, err)
			assert.ErrorIs(t, err, types.ErrInvalidSignature)
		})
	}
}

func TestDecodeHeader_SizeMismatch(t *testing.T) {
	for _, size := range []int{0, 92, 511, 513, 4096} {
		buf := make([]byte, size)
		if size >= 8 {
			copy(buf, types.GPTSignature)
		}
		_, err := DecodeHeader(buf)
		assert.ErrorIs(t, err, types.ErrSizeMismatch, "size %d", size)
	}
}

func TestDecodePartitionEntry(t *testing.T) {
	entry := createTestEntry(t, testPartition{
		typeGUID:   "0fc63daf-8483-4772-8e79-3d69d8477de4",
		uniqueGUID: "a1b2c3d4-e5f6-4789-abcd-ef0123456789",
		firstLBA:   2048,
		lastLBA:    4095,
		attributes: 1 << 60,
		name:       "rootfs",
	})

	p, err := DecodePartitionEntry(entry)
	require.NoError(t, err)
	require.NotNil(t, p)

	assert.Equal(t, LinuxFilesystemType, p.TypeGUID)
	assert.Equal(t, "Linux Filesystem", p.TypeName)
	assert.Equal(t, "a1b2c3d4-e5f6-4789-abcd-ef0123456789", p.UniqueGUID.String())
	assert.Equal(t, uint64(2048), p.FirstLBA)
	assert.Equal(t, uint64(4095), p.LastLBA)
	assert.Equal(t, uint64(1<<60), p.Attributes)
	assert.Equal(t, "rootfs", p.Name)
	assert.Equal(t, int64(2048), p.SizeSectors())
	assert.Equal(t, 1.0, p.SizeMiB())
}

func TestDecodePartitionEntry_UnusedRegardlessOfOtherFields(t *testing.T) {
	entry := createTestEntry(t, testPartition{
		uniqueGUID: "a1b2c3d4-e5f6-4789-abcd-ef0123456789",
		firstLBA:   34,
		lastLBA:    999,
		attributes: ^uint64(0),
		name:       "ghost",
	})

	p, err := DecodePartitionEntry(entry)
	require.NoError(t, err)
	assert.Nil(t, p)
}

func TestDecodePartitionEntry_ImplausibleRangeIsReported(t *testing.T) {
	entry := createTestEntry(t, testPartition{
		typeGUID: "ebd0a0a2-b9e5-4433-87c0-68b6b72699c7",
		firstLBA: 100,
		lastLBA:  50,
		name:     "backwards",
	})

	p, err := DecodePartitionEntry(entry)
	require.NoError(t, err)
	require.NotNil(t, p)
	assert.Equal(t, int64(-49), p.SizeSectors())
}

func TestDecodePartitionEntry_SizeMismatch(t *testing.T) {
	_, err := DecodePartitionEntry(make([]byte, 127))
	assert.ErrorIs(t, err, types.ErrSizeMismatch)

	_, err = DecodePartitionEntry(make([]byte, 256))
	assert.ErrorIs(t, err, types.ErrSizeMismatch)
}

func TestDecodeProtectiveMBR(t *testing.T) {
	mbr, err := DecodeProtectiveMBR(createTestMBR())
	require.NoError(t, err)

	assert.Equal(t, uint16(0xAA55), mbr.BootSignature)
	assert.Equal(t, uint8(0xEE), mbr.OSType)
	assert.Equal(t, uint32(1), mbr.StartingLBA)
	assert.Equal(t, uint32(0xFFFFFFFF), mbr.SizeInLBA)
	assert.True(t, mbr.IsProtective())

	blank, err := DecodeProtectiveMBR(make([]byte, 512))
	require.NoError(t, err)
	assert.False(t, blank.IsProtective())
}

func TestDecodeTable_PreservesSlotIndexes(t *testing.T) {
	var entries []byte
	entries = append(entries, createTestEntry(t, testPartition{
		typeGUID: "c12a7328-f81f-11d2-ba4b-00a0c93ec93b", firstLBA: 34, lastLBA: 1057, name: "esp",
	})...)
	entries = append(entries, make([]byte, 128)...)
	entries = append(entries, make([]byte, 128)...)
	entries = append(entries, createTestEntry(t, testPartition{
		typeGUID: "0fc63daf-8483-4772-8e79-3d69d8477de4", firstLBA: 1058, lastLBA: 9999, name: "rootfs",
	})...)

	table, err := DecodeTable(createTestMBR(), createTestHeader(t, 4, 128), entries, 4, 128)
	require.NoError(t, err)
	require.Len(t, table.Partitions, 2)

	assert.Equal(t, 0, table.Partitions[0].Index)
	assert.Equal(t, "esp", table.Partitions[0].Name)
	assert.Equal(t, "EFI System", table.Partitions[0].TypeName)
	assert.Equal(t, 3, table.Partitions[1].Index)
	assert.Equal(t, "rootfs", table.Partitions[1].Name)
	assert.Equal(t, []string{"esp", "rootfs"}, table.Names())
	assert.True(t, table.MBR.IsProtective())
}

func TestDecodeTable_StopsEarlyOnShortBuffer(t *testing.T) {
	var entries []byte
	for i, name := range []string{"a", "b", "c"} {
		entries = append(entries, createTestEntry(t, testPartition{
			typeGUID: "0fc63daf-8483-4772-8e79-3d69d8477de4",
			firstLBA: uint64(100 * (i + 1)),
			lastLBA:  uint64(100*(i+1) + 99),
			name:     name,
		})...)
	}
	// Half of a fourth slot.
	entries = append(entries, make([]byte, 64)...)
	entries[3*128] = 0xFF

	table, err := DecodeTable(createTestMBR(), createTestHeader(t, 128, 128), entries, 128, 128)
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b", "c"}, table.Names())
}

func TestDecodeTable_WideEntries(t *testing.T) {
	var entries []byte
	for _, name := range []string{"boot", "system"} {
		slot := make([]byte, 256)
		copy(slot, createTestEntry(t, testPartition{
			typeGUID: "ebd0a0a2-b9e5-4433-87c0-68b6b72699c7", firstLBA: 34, lastLBA: 40, name: name,
		}))
		for i := 128; i < 256; i++ {
			slot[i] = 0xEE
		}
		entries = append(entries, slot...)
	}

	table, err := DecodeTable(createTestMBR(), createTestHeader(t, 2, 256), entries, 2, 256)
	require.NoError(t, err)
	require.Len(t, table.Partitions, 2)
	assert.Equal(t, 1, table.Partitions[1].Index)
	assert.Equal(t, "system", table.Partitions[1].Name)
}

func TestDecodeTable_Errors(t *testing.T) {
	t.Run("Entry Size Too Small", func(t *testing.T) {
		_, err := DecodeTable(createTestMBR(), createTestHeader(t, 4, 64), make([]byte, 512), 4, 64)
		assert.ErrorIs(t, err, types.ErrSizeMismatch)
	})

	t.Run("Bad Header Signature", func(t *testing.T) {
		header := createTestHeader(t, 4, 128)
		header[0] = 'X'
		_, err := DecodeTable(createTestMBR(), header, make([]byte, 512), 4, 128)
		assert.ErrorIs(t, err, types.ErrInvalidSignature)
	})

	t.Run("Short MBR", func(t *testing.T) {
		_, err := DecodeTable(make([]byte, 100), createTestHeader(t, 4, 128), make([]byte, 512), 4, 128)
		assert.ErrorIs(t, err, types.ErrSizeMismatch)
	})
}

func TestDecodeTable_EmptyArray(t *testing.T) {
	table, err := DecodeTable(createTestMBR(), createTestHeader(t, 0, 128), nil, 0, 128)
	require.NoError(t, err)
	assert.Empty(t, table.Partitions)
	assert.Empty(t, table.Names())
}

func TestPartitionTypeName(t *testing.T) {
	testCases := []struct {
		guid     string
		expected string
	}{
		{"c12a7328-f81f-11d2-ba4b-00a0c93ec93b", "EFI System"},
		{"21686148-6449-6e6f-744e-656564454649", "BIOS Boot"},
		{"024dee41-33e7-11d3-9d69-0008c781f39f", "MBR partition scheme"},
		{"e3c9e316-0b5c-4db8-817d-f92df00215ae", "Microsoft Reserved"},
		{"ebd0a0a2-b9e5-4433-87c0-68b6b72699c7", "Microsoft Basic Data"},
		{"0657fd6d-a4ab-43c4-84e5-0933c84b4f4f", "Linux Swap"},
		{"e6d6d379-f507-44c2-a23c-238f2a3df928", "Linux LVM"},
		{"a19d880f-05fc-4d3b-a006-743f0f84911e", "Linux RAID"},
		{"48465300-0000-11aa-aa11-00306543ecac", "Apple HFS+"},
		{"7c3457ef-0000-11aa-aa11-00306543ecac", "Apple APFS"},
		{"69646961-6700-11aa-aa11-00306543ecac", "Apple RAID"},
		{"00000000-0000-0000-0000-000000000001", "Unknown"},
		{"a1b2c3d4-e5f6-4789-abcd-ef0123456789", "Unknown"},
	}

	for _, tc := range testCases {
		t.Run(tc.expected+"/"+tc.guid, func(t *testing.T) {
			assert.Equal(t, tc.expected, PartitionTypeName(uuid.MustParse(tc.guid)))
		})
	}
}

func TestGUIDFromBytes(t *testing.T) {
	for _, s := range []string{
		"C12A7328-F81F-11D2-BA4B-00A0C93EC93B",
		"7C3457EF-0000-11AA-AA11-00306543ECAC",
	} {
		gptBytes := parseUUIDStringToGPTBytes(t, s)
		assert.Equal(t, uuid.MustParse(s), guidFromBytes(gptBytes[:]))
	}

	// Mixed endian: the first group is stored byte-reversed.
	esp := parseUUIDStringToGPTBytes(t, "C12A7328-F81F-11D2-BA4B-00A0C93EC93B")
	assert.Equal(t, []byte{0x28, 0x73, 0x2A, 0xC1}, esp[0:4])
}

func TestDecodeUTF16LE(t *testing.T) {
	testCases := []struct {
		name     string
		input    string
		expected string
	}{
		{"Simple", "boot", "boot"},
		{"With Space", "User Data", "User Data"},
		{"Empty Input String", "", ""},
		{"Max Length (36 chars)", "ThisIsAReallyLongPartitionNameTest12", "ThisIsAReallyLongPartitionNameTest12"},
		{"Non ASCII", "données", "données"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			nameBytes := createGPTPartitionName(tc.input)
			assert.Equal(t, tc.expected, decodeUTF16LE(nameBytes[:]))
		})
	}

	t.Run("Trailing Padding Stripped", func(t *testing.T) {
		var nameBytes [72]byte
		for i, r := range utf16.Encode([]rune("Hello")) {
			binary.LittleEndian.PutUint16(nameBytes[i*2:], r)
		}
		assert.Equal(t, "Hello", decodeUTF16LE(nameBytes[:]))
	})

	t.Run("Embedded Null Kept", func(t *testing.T) {
		var nameBytes [72]byte
		for i, r := range utf16.Encode([]rune("Hello")) {
			binary.LittleEndian.PutUint16(nameBytes[i*2:], r)
		}
		// Text after an embedded NUL is part of the name.
		binary.LittleEndian.PutUint16(nameBytes[12:], 'X')
		assert.Equal(t, "Hello\x00X", decodeUTF16LE(nameBytes[:]))
	})

	t.Run("All Padding", func(t *testing.T) {
		var nameBytes [72]byte
		assert.Equal(t, "", decodeUTF16LE(nameBytes[:]))
	})
}
