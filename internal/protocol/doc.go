// Package protocol implements the command framing of the eMMC stage2
// bootloader.
//
// # Wire Format
//
// Every command is the 32-bit magic 0xF00DD00D, the 32-bit command code and
// zero or more 32-bit arguments, each field big-endian and sent as its own
// transport write:
//
//	[MAGIC][CMD][ARG0]...[ARGn]
//
// Replies carry no framing. A sector read returns 512 raw bytes, a sector
// write returns the 4-byte token 0xD0D0D0D0 on success, the status read
// returns the 512-byte EXT_CSD register and the watchdog reset returns
// nothing.
//
// # Error Handling
//
// The protocol has no sequence numbers or resend semantics. A short read or
// a failed write leaves the channel in an unknown state, so every failure is
// reported as a types.ProtocolError and nothing is retried.
//
// # Hardware Independence
//
// The Framer talks to any io.ReadWriter: a CDC-ACM tty, a TCP proxy or the
// in-process emulator in internal/device.
package protocol
