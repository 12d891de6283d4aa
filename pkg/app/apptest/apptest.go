// Package apptest provides an emulated device session for handler tests.
package apptest

import (
	"bytes"
	"encoding/binary"
	"testing"
	"unicode/utf16"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/deploymenttheory/go-emmc/internal/device"
	"github.com/deploymenttheory/go-emmc/internal/disk"
	"github.com/deploymenttheory/go-emmc/internal/types"
	"github.com/deploymenttheory/go-emmc/pkg/app"
)

// Default emulated geometry: 128 KiB boot regions, 2 MiB userdata.
const (
	BootSectors = 256
	UserSectors = 4096
)

// Partition describes one entry laid out by WriteGPT.
type Partition struct {
	Name     string
	TypeGUID uuid.UUID
	FirstLBA uint64
	LastLBA  uint64
}

// Env is an emulator wired to an application session.
type Env struct {
	Emulator *device.Emulator
	Session  *app.Session
	Context  *app.Context
	Config   *device.Config
	Out      *bytes.Buffer
}

// NewEnv builds a session over an in-memory emulator. The EXT_CSD dump path
// is cleared so handlers do not write into the working directory.
func NewEnv(t *testing.T, opts ...device.EmulatorOption) *Env {
	t.Helper()

	emu, err := device.NewMemoryEmulator(BootSectors, UserSectors, opts...)
	require.NoError(t, err)

	out := &bytes.Buffer{}
	ctx := app.NewContext()
	ctx.Out = out
	ctx.ErrOut = &bytes.Buffer{}

	cfg := &device.Config{
		Transport:        device.TransportEmulator,
		ProgressInterval: 10,
	}

	sess := app.NewSession(ctx, emu, cfg)
	t.Cleanup(func() { sess.Close() })

	return &Env{
		Emulator: emu,
		Session:  sess,
		Context:  ctx,
		Config:   cfg,
		Out:      out,
	}
}

// Image returns the backing image of region.
func (e *Env) Image(region types.Region) *disk.Image {
	return e.Emulator.Image(region.ID)
}

// Fill writes sector i of region with the byte seed+i, for count sectors
// from start.
func (e *Env) Fill(t *testing.T, region types.Region, start, count uint64, seed byte) {
	t.Helper()
	img := e.Image(region)
	for i := uint64(0); i < count; i++ {
		require.NoError(t, img.WriteSector(start+i, bytes.Repeat([]byte{seed + byte(i)}, types.SectorSize)))
	}
}

// Sectors returns count sectors of region from start.
func (e *Env) Sectors(t *testing.T, region types.Region, start, count uint64) []byte {
	t.Helper()
	img := e.Image(region)
	var buf bytes.Buffer
	for i := uint64(0); i < count; i++ {
		data, err := img.ReadSector(start + i)
		require.NoError(t, err)
		buf.Write(data)
	}
	return buf.Bytes()
}

// WriteGPT lays out a GPT on the userdata image of the emulator.
func (e *Env) WriteGPT(t *testing.T, parts []Partition) {
	t.Helper()
	WriteGPT(t, e.Image(types.RegionUserData), parts)
}

// WriteGPT lays out a protective MBR, a primary header and a 128-entry array
// at LBA 2 on img.
func WriteGPT(t *testing.T, img *disk.Image, parts []Partition) {
	t.Helper()
	const entries = 128

	mbr := make([]byte, types.SectorSize)
	mbr[446+4] = types.MBRProtectiveType
	binary.LittleEndian.PutUint32(mbr[446+8:], 1)
	binary.LittleEndian.PutUint32(mbr[446+12:], uint32(img.Sectors()-1))
	binary.LittleEndian.PutUint16(mbr[510:], types.MBRBootSignature)
	require.NoError(t, img.WriteSector(0, mbr))

	header := make([]byte, types.SectorSize)
	copy(header[0:8], types.GPTSignature)
	binary.LittleEndian.PutUint32(header[8:12], 0x00010000)
	binary.LittleEndian.PutUint32(header[12:16], types.GPTHeaderFieldsSize)
	binary.LittleEndian.PutUint64(header[24:32], 1)
	binary.LittleEndian.PutUint64(header[32:40], img.Sectors()-1)
	binary.LittleEndian.PutUint64(header[40:48], 34)
	binary.LittleEndian.PutUint64(header[48:56], img.Sectors()-34)
	copy(header[56:72], guidBytes(uuid.MustParse("5f3a1c2e-7b4d-4e8f-9a6b-0c1d2e3f4a5b")))
	binary.LittleEndian.PutUint64(header[72:80], 2)
	binary.LittleEndian.PutUint32(header[80:84], entries)
	binary.LittleEndian.PutUint32(header[84:88], types.GPTEntrySize)
	require.NoError(t, img.WriteSector(1, header))

	array := make([]byte, entries*types.GPTEntrySize)
	for i, p := range parts {
		entry := array[i*types.GPTEntrySize:]
		copy(entry[0:16], guidBytes(p.TypeGUID))
		copy(entry[16:32], guidBytes(uuid.NewSHA1(uuid.NameSpaceOID, []byte(p.Name))))
		binary.LittleEndian.PutUint64(entry[32:40], p.FirstLBA)
		binary.LittleEndian.PutUint64(entry[40:48], p.LastLBA)
		for j, r := range utf16.Encode([]rune(p.Name)) {
			binary.LittleEndian.PutUint16(entry[56+j*2:], r)
		}
	}
	for i := 0; i < len(array)/types.SectorSize; i++ {
		require.NoError(t, img.WriteSector(uint64(2+i), array[i*types.SectorSize:(i+1)*types.SectorSize]))
	}
}

// guidBytes converts a GUID to its on-disk mixed-endian form.
func guidBytes(id uuid.UUID) []byte {
	b := make([]byte, 16)
	b[0], b[1], b[2], b[3] = id[3], id[2], id[1], id[0]
	b[4], b[5] = id[5], id[4]
	b[6], b[7] = id[7], id[6]
	copy(b[8:], id[8:])
	return b
}
