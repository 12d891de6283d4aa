package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/deploymenttheory/go-emmc/internal/types"
)

// ProgressUpdate represents progress information
type ProgressUpdate struct {
	Message     string
	Target      string
	Phase       string
	Completed   int64
	Total       int64
	StartedAt   time.Time
	ElapsedTime time.Duration
}

// Percent calculates completion percentage
func (p *ProgressUpdate) Percent() int {
	if p.Total == 0 {
		return 0
	}
	return int((p.Completed * 100) / p.Total)
}

// Rate calculates sectors per second
func (p *ProgressUpdate) Rate() float64 {
	if p.ElapsedTime == 0 {
		return 0
	}
	return float64(p.Completed) / p.ElapsedTime.Seconds()
}

// MegabytesPerSecond converts the sector rate to MB/s
func (p *ProgressUpdate) MegabytesPerSecond() float64 {
	return p.Rate() * types.SectorSize / (1024 * 1024)
}

// ETA estimates time to completion
func (p *ProgressUpdate) ETA() time.Duration {
	if p.Completed == 0 || p.Total == 0 {
		return 0
	}
	rate := p.Rate()
	if rate == 0 {
		return 0
	}
	remaining := p.Total - p.Completed
	return time.Duration(float64(remaining) / rate * float64(time.Second))
}

// Done reports whether the phase has finished
func (p *ProgressUpdate) Done() bool {
	return p.Total > 0 && p.Completed >= p.Total
}

// CommonError represents application-level errors
type CommonError struct {
	Code    string
	Message string
	Cause   error
}

func (e *CommonError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

func (e *CommonError) Unwrap() error {
	return e.Cause
}

// Common error codes
const (
	ErrCodeInvalidInput      = "INVALID_INPUT"
	ErrCodeDeviceAccess      = "DEVICE_ACCESS"
	ErrCodeDecode            = "DECODE"
	ErrCodeOutOfRange        = "OUT_OF_RANGE"
	ErrCodePartitionNotFound = "PARTITION_NOT_FOUND"
	ErrCodePartitionOverflow = "PARTITION_OVERFLOW"
	ErrCodeNotConfirmed      = "NOT_CONFIRMED"
	ErrCodeVerifyFailed      = "VERIFY_FAILED"
	ErrCodeFileAccess        = "FILE_ACCESS"
	ErrCodeCancelled         = "CANCELLED"
	ErrCodeTimeout           = "TIMEOUT"
)

// NewError creates a new CommonError
func NewError(code, message string, cause error) *CommonError {
	return &CommonError{
		Code:    code,
		Message: message,
		Cause:   cause,
	}
}

// ErrorCode classifies err into one of the common error codes.
func ErrorCode(err error) string {
	var common *CommonError
	switch {
	case errors.As(err, &common):
		return common.Code
	case errors.Is(err, context.Canceled):
		return ErrCodeCancelled
	case errors.Is(err, context.DeadlineExceeded):
		return ErrCodeTimeout
	case errors.Is(err, types.ErrSizeMismatch), errors.Is(err, types.ErrInvalidSignature):
		return ErrCodeDecode
	case errors.Is(err, types.ErrOutOfRange):
		return ErrCodeOutOfRange
	case errors.Is(err, types.ErrPartitionNotFound):
		return ErrCodePartitionNotFound
	case errors.Is(err, types.ErrPartitionOverflow):
		return ErrCodePartitionOverflow
	case errors.Is(err, types.ErrShortWriteNotConfirmed):
		return ErrCodeNotConfirmed
	case errors.Is(err, types.ErrShortRead), errors.Is(err, types.ErrWriteNotAcknowledged), errors.Is(err, types.ErrTransport):
		return ErrCodeDeviceAccess
	default:
		return ""
	}
}

// Wrap returns err as a CommonError with a code derived from its kind.
// A CommonError is returned unchanged.
func Wrap(message string, err error) error {
	if err == nil {
		return nil
	}
	var common *CommonError
	if errors.As(err, &common) {
		return err
	}
	return NewError(ErrorCode(err), message, err)
}
