package protocol

// EncodeField encodes one 32-bit header or argument field.
func EncodeField(v uint32) []byte {
	b := make([]byte, FieldSize)
	ByteOrder.PutUint32(b, v)
	return b
}

// BuildCommand returns the fields of a command in transmission order:
// magic, command code, then each argument. Each field is sent as its own
// transport write.
//
// Frame structure:
//
//	[MAGIC(4)][CMD(4)][ARG0(4)]...[ARGn(4)]
func BuildCommand(cmd uint32, args ...uint32) [][]byte {
	fields := make([][]byte, 0, 2+len(args))
	fields = append(fields, EncodeField(Magic), EncodeField(cmd))
	for _, arg := range args {
		fields = append(fields, EncodeField(arg))
	}
	return fields
}

// ArgCount returns the number of 32-bit arguments a command carries, or -1
// for an unknown command.
func ArgCount(cmd uint32) int {
	switch cmd {
	case CmdReadSector, CmdWriteSector:
		return 2
	case CmdGetExtCsd, CmdWatchdogReset:
		return 0
	default:
		return -1
	}
}

// IsWriteAck reports whether a 4-byte reply is the write success token.
func IsWriteAck(reply []byte) bool {
	return len(reply) == AckSize && ByteOrder.Uint32(reply) == WriteAck
}
