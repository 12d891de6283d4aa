package inspect

import (
	"github.com/deploymenttheory/go-emmc/pkg/app"
)

// Validate validates an EXT_CSD request
func (r *ExtCsdRequest) Validate() error {
	if err := app.ValidateOutputPath(r.OutPath); err != nil {
		return app.NewError(app.ErrCodeInvalidInput, "invalid output path", err)
	}
	return nil
}

// Validate validates a GPT request
func (r *GPTRequest) Validate() error {
	if err := app.ValidateOutputPath(r.OutPath); err != nil {
		return app.NewError(app.ErrCodeInvalidInput, "invalid output path", err)
	}
	return nil
}
