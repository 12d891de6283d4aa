package protocol

import (
	"fmt"
	"io"

	"github.com/deploymenttheory/go-emmc/internal/interfaces"
	"github.com/deploymenttheory/go-emmc/internal/types"
)

// maxEmptyReads bounds consecutive zero-byte reads that report no error.
const maxEmptyReads = 100

// Framer encodes commands and decodes replies over a byte channel.
// It keeps no state between commands and is not safe for concurrent use:
// exactly one command may be in flight.
type Framer struct {
	rw     io.ReadWriter
	config Config
}

// Compile-time check
var _ interfaces.SectorDevice = (*Framer)(nil)

// NewFramer creates a Framer over the given channel.
//
// Example:
//
//	port, _ := device.OpenTransport(cfg)
//	f := protocol.NewFramer(port)
//	sector, err := f.ReadSector(types.RegionIDBoot0, 0)
func NewFramer(rw io.ReadWriter, opts ...Option) *Framer {
	if rw == nil {
		panic("channel cannot be nil")
	}

	cfg := defaultConfig()
	for _, opt := range opts {
		opt(&cfg)
	}

	return &Framer{
		rw:     rw,
		config: cfg,
	}
}

// Send transmits magic, command code and arguments, one field per write.
func (f *Framer) Send(cmd uint32, args ...uint32) error {
	f.config.Logger.Debug("send command",
		"command", CommandName(cmd),
		"code", fmt.Sprintf("0x%04X", cmd),
		"args", args,
	)

	for _, field := range BuildCommand(cmd, args...) {
		if err := f.write(field); err != nil {
			return err
		}
	}
	return nil
}

// ReceiveExact blocks until exactly n bytes have been read, accumulating
// partial reads. A transport error or end of stream before n bytes is fatal.
func (f *Framer) ReceiveExact(n int) ([]byte, error) {
	buf := make([]byte, n)
	got := 0
	empty := 0
	for got < n {
		m, err := f.rw.Read(buf[got:])
		got += m
		if got >= n {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("received %d of %d bytes: %w", got, n, err)
		}
		if m == 0 {
			empty++
			if empty >= maxEmptyReads {
				return nil, fmt.Errorf("received %d of %d bytes: %w", got, n, io.ErrNoProgress)
			}
			continue
		}
		empty = 0
	}
	return buf, nil
}

// ReadSector reads one 512-byte sector from a region.
func (f *Framer) ReadSector(region types.RegionID, sector uint32) ([]byte, error) {
	if err := f.Send(CmdReadSector, uint32(region), sector); err != nil {
		return nil, sectorError("read sector", region, sector, types.ErrTransport, "send command", err)
	}

	data, err := f.ReceiveExact(types.SectorSize)
	if err != nil {
		return nil, sectorError("read sector", region, sector, types.ErrShortRead, "receive sector", err)
	}
	return data, nil
}

// WriteSector writes one 512-byte sector to a region. It returns true only
// when the device echoes the success token; any other reply returns false.
func (f *Framer) WriteSector(region types.RegionID, sector uint32, data []byte) (bool, error) {
	if len(data) != types.SectorSize {
		return false, types.NewSizeMismatchError("sector payload", types.SectorSize, len(data))
	}

	if err := f.Send(CmdWriteSector, uint32(region), sector); err != nil {
		return false, sectorError("write sector", region, sector, types.ErrTransport, "send command", err)
	}
	if err := f.write(data); err != nil {
		return false, sectorError("write sector", region, sector, types.ErrTransport, "send payload", err)
	}

	reply, err := f.ReceiveExact(AckSize)
	if err != nil {
		return false, sectorError("write sector", region, sector, types.ErrShortRead, "receive acknowledgement", err)
	}

	if !IsWriteAck(reply) {
		f.config.Logger.Debug("write not acknowledged",
			"region", region,
			"sector", sector,
			"reply", fmt.Sprintf("0x%08X", ByteOrder.Uint32(reply)),
		)
		return false, nil
	}
	return true, nil
}

// ExtCsd reads the raw 512-byte EXT_CSD register.
func (f *Framer) ExtCsd() ([]byte, error) {
	if err := f.Send(CmdGetExtCsd); err != nil {
		return nil, &types.ProtocolError{Operation: "get ext_csd", Kind: types.ErrTransport, Message: "send command", Cause: err}
	}

	data, err := f.ReceiveExact(types.ExtCsdSize)
	if err != nil {
		return nil, &types.ProtocolError{Operation: "get ext_csd", Kind: types.ErrShortRead, Message: "receive register", Cause: err}
	}
	return data, nil
}

// KickWatchdog sends the watchdog reset command. The device does not reply.
func (f *Framer) KickWatchdog() error {
	if err := f.Send(CmdWatchdogReset); err != nil {
		return &types.ProtocolError{Operation: "watchdog reset", Kind: types.ErrTransport, Message: "send command", Cause: err}
	}
	return nil
}

// write sends one buffer; a partial write is a failure.
func (f *Framer) write(p []byte) error {
	n, err := f.rw.Write(p)
	if err != nil {
		return err
	}
	if n != len(p) {
		return io.ErrShortWrite
	}
	return nil
}

func sectorError(op string, region types.RegionID, sector uint32, kind error, msg string, cause error) *types.ProtocolError {
	return &types.ProtocolError{
		Operation: op,
		Addressed: true,
		Region:    region,
		Sector:    sector,
		Kind:      kind,
		Message:   msg,
		Cause:     cause,
	}
}
