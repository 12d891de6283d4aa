package types

import (
	"errors"
	"fmt"
	"strings"
)

// Error kinds. Match them with errors.Is; use errors.As on the typed errors
// below for details.
var (
	// ErrSizeMismatch indicates a buffer of the wrong length was decoded.
	ErrSizeMismatch = errors.New("size mismatch")
	// ErrInvalidSignature indicates a missing or wrong structure signature.
	ErrInvalidSignature = errors.New("invalid signature")
	// ErrOutOfRange indicates a sector range outside its region or partition.
	ErrOutOfRange = errors.New("out of range")
	// ErrPartitionOverflow indicates input larger than the target partition.
	ErrPartitionOverflow = errors.New("partition overflow")
	// ErrPartitionNotFound indicates an unknown partition label.
	ErrPartitionNotFound = errors.New("partition not found")
	// ErrShortRead indicates the device returned fewer bytes than required.
	ErrShortRead = errors.New("short read")
	// ErrWriteNotAcknowledged indicates a missing or wrong write acknowledgement.
	ErrWriteNotAcknowledged = errors.New("write not acknowledged")
	// ErrTransport indicates the transport failed to send.
	ErrTransport = errors.New("transport failure")
	// ErrShortWriteNotConfirmed indicates a write smaller than its partition
	// was attempted without an explicit proceed decision.
	ErrShortWriteNotConfirmed = errors.New("short partition write not confirmed")
)

// DecodeError reports a structurally invalid register or table buffer.
type DecodeError struct {
	Structure string
	Kind      error
	Message   string
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("decode %s: %s", e.Structure, e.Message)
}

// Is matches the error kind.
func (e *DecodeError) Is(target error) bool {
	return target == e.Kind
}

// NewSizeMismatchError returns a DecodeError for a wrongly sized buffer.
func NewSizeMismatchError(structure string, want, got int) *DecodeError {
	return &DecodeError{
		Structure: structure,
		Kind:      ErrSizeMismatch,
		Message:   fmt.Sprintf("must be %d bytes, got %d", want, got),
	}
}

// BoundsError reports a sector range that does not fit its extent.
type BoundsError struct {
	Target   string
	Start    uint64
	Count    uint64
	Capacity uint64
	Reason   string
}

func (e *BoundsError) Error() string {
	return e.Reason
}

// Is matches ErrOutOfRange.
func (e *BoundsError) Is(target error) bool {
	return target == ErrOutOfRange
}

// PartitionOverflowError reports input that does not fit the partition.
type PartitionOverflowError struct {
	Partition        string
	InputSectors     uint64
	InputBytes       int64
	PartitionSectors uint64
}

// Overflow returns the number of sectors that do not fit.
func (e *PartitionOverflowError) Overflow() uint64 {
	return e.InputSectors - e.PartitionSectors
}

func (e *PartitionOverflowError) Error() string {
	return fmt.Sprintf("input is too large for partition '%s': %d sectors (%d bytes) into %d sectors (%d bytes), exceeds by %d sectors",
		e.Partition, e.InputSectors, e.InputBytes, e.PartitionSectors, e.PartitionSectors*SectorSize, e.Overflow())
}

// Is matches ErrPartitionOverflow.
func (e *PartitionOverflowError) Is(target error) bool {
	return target == ErrPartitionOverflow
}

// NotFoundError reports an unknown partition together with every label that
// does exist, so the operator can correct the request.
type NotFoundError struct {
	Name      string
	Available []string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("partition '%s' not found. Available partitions: %s", e.Name, strings.Join(e.Available, ", "))
}

// Is matches ErrPartitionNotFound.
func (e *NotFoundError) Is(target error) bool {
	return target == ErrPartitionNotFound
}

// ProtocolError reports a failed device exchange. The protocol has no
// sequence numbers, so these are never retried.
type ProtocolError struct {
	Operation string
	// Addressed is set for sector commands; Region and Sector are valid.
	Addressed bool
	Region    RegionID
	Sector    uint32
	Kind      error
	Message   string
	Cause     error
}

func (e *ProtocolError) Error() string {
	msg := e.Operation
	if e.Addressed {
		msg += fmt.Sprintf(" (region %d, sector %d)", e.Region, e.Sector)
	}
	msg += ": " + e.Message
	if e.Cause != nil {
		msg += ": " + e.Cause.Error()
	}
	return msg
}

// Is matches the error kind.
func (e *ProtocolError) Is(target error) bool {
	return target == e.Kind
}

// Unwrap returns the transport error, if any.
func (e *ProtocolError) Unwrap() error {
	return e.Cause
}
