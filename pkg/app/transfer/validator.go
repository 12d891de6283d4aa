package transfer

import (
	"fmt"

	"github.com/deploymenttheory/go-emmc/internal/types"
	"github.com/deploymenttheory/go-emmc/pkg/app"
)

func validateRegion(name string) (types.Region, error) {
	region, err := types.ParseRegion(name)
	if err != nil {
		return types.Region{}, app.NewError(app.ErrCodeInvalidInput, "invalid region", err)
	}
	return region, nil
}

func validateLabel(label string) error {
	if label == "" {
		return app.NewError(app.ErrCodeInvalidInput, "partition label is required", nil)
	}
	return nil
}

func validateOutput(path string) error {
	if path == "" {
		return app.NewError(app.ErrCodeInvalidInput, "output file is required", nil)
	}
	if err := app.ValidateOutputPath(path); err != nil {
		return app.NewError(app.ErrCodeInvalidInput, "invalid output path", err)
	}
	return nil
}

func validateInput(path string) (int64, error) {
	size, err := app.ValidateInputPath(path)
	if err != nil {
		return 0, app.NewError(app.ErrCodeInvalidInput, "invalid input file", err)
	}
	return size, nil
}

// Validate validates a read request
func (r *ReadRequest) Validate() error {
	if _, err := validateRegion(r.Region); err != nil {
		return err
	}
	return validateOutput(r.OutPath)
}

// Validate validates a write request and returns the input size
func (r *WriteRequest) Validate() (int64, error) {
	if _, err := validateRegion(r.Region); err != nil {
		return 0, err
	}
	size, err := validateInput(r.InPath)
	if err != nil {
		return 0, err
	}
	if size == 0 {
		return 0, app.NewError(app.ErrCodeInvalidInput, fmt.Sprintf("input file %s is empty", r.InPath), nil)
	}
	return size, nil
}

// Validate validates a partition read request
func (r *ReadPartitionRequest) Validate() error {
	if err := validateLabel(r.Label); err != nil {
		return err
	}
	return validateOutput(r.OutPath)
}

// Validate validates a partition write request and returns the input size
func (r *WritePartitionRequest) Validate() (int64, error) {
	if err := validateLabel(r.Label); err != nil {
		return 0, err
	}
	return validateInput(r.InPath)
}

// Validate validates a round-trip request, applying defaults
func (r *RoundTripRequest) Validate() error {
	if r.Region == "" {
		r.Region = DefaultRoundTripRegion
	}
	if r.Count == 0 {
		r.Count = DefaultRoundTripCount
	}
	_, err := validateRegion(r.Region)
	return err
}
