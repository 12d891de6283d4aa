package services

import (
	"fmt"

	"github.com/deploymenttheory/go-emmc/internal/interfaces"
	"github.com/deploymenttheory/go-emmc/internal/parsers/extcsd"
	"github.com/deploymenttheory/go-emmc/internal/types"
)

// ExtCsdSnapshot is one EXT_CSD read: the raw register and its decoded fields.
type ExtCsdSnapshot struct {
	Raw  []byte
	Info *types.ExtCsdInfo
}

// ExtCsdService fetches and decodes the EXT_CSD register.
type ExtCsdService struct {
	device interfaces.StatusReader
	config Config
}

// NewExtCsdService creates an EXT_CSD reader for device.
func NewExtCsdService(device interfaces.StatusReader, opts ...Option) *ExtCsdService {
	if device == nil {
		panic("device cannot be nil")
	}

	cfg := defaultConfig()
	for _, opt := range opts {
		opt(&cfg)
	}

	return &ExtCsdService{device: device, config: cfg}
}

// Read fetches the register from the device and decodes it. Region sizes
// must always come from a fresh read, never a cached one.
func (s *ExtCsdService) Read() (*ExtCsdSnapshot, error) {
	raw, err := s.device.ExtCsd()
	if err != nil {
		return nil, err
	}

	info, err := extcsd.Decode(raw)
	if err != nil {
		return nil, fmt.Errorf("decode ext_csd: %w", err)
	}

	s.config.Logger.Debug("ext_csd read",
		"revision", info.Revision,
		"card_type", fmt.Sprintf("0x%02X", info.CardType),
		"boot_size_mult", info.BootSizeMultiplier,
		"sec_count", info.UserSectorCount,
	)

	return &ExtCsdSnapshot{Raw: raw, Info: info}, nil
}
