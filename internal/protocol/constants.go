package protocol

import "encoding/binary"

// Frame constants of the stage2 bootloader command channel.
const (
	// Magic precedes every command.
	Magic uint32 = 0xF00DD00D

	// WriteAck is returned by the device after a successful sector write.
	WriteAck uint32 = 0xD0D0D0D0

	// FieldSize is the size of every header and argument field in bytes.
	FieldSize = 4

	// AckSize is the size of the write acknowledgement in bytes.
	AckSize = 4
)

// Command codes.
const (
	// CmdReadSector reads one sector: args (region, sector), reply 512 bytes
	CmdReadSector uint32 = 0x1001

	// CmdWriteSector writes one sector: args (region, sector), then a 512-byte
	// payload, reply 4-byte acknowledgement
	CmdWriteSector uint32 = 0x1002

	// CmdGetExtCsd reads the EXT_CSD register: no args, reply 512 bytes
	CmdGetExtCsd uint32 = 0x1003

	// CmdWatchdogReset kicks the watchdog: no args, no reply
	CmdWatchdogReset uint32 = 0x3001
)

// ByteOrder is the byte order of every 32-bit field on the wire.
var ByteOrder binary.ByteOrder = binary.BigEndian

// CommandName returns a readable name for a command code.
func CommandName(cmd uint32) string {
	switch cmd {
	case CmdReadSector:
		return "READ_SECTOR"
	case CmdWriteSector:
		return "WRITE_SECTOR"
	case CmdGetExtCsd:
		return "GET_EXT_CSD"
	case CmdWatchdogReset:
		return "WATCHDOG_RESET"
	default:
		return "UNKNOWN"
	}
}
