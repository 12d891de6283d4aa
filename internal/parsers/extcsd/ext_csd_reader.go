package extcsd

import (
	"encoding/binary"

	"github.com/deploymenttheory/go-emmc/internal/types"
)

// Decode parses a raw EXT_CSD register.
// The buffer must be exactly 512 bytes; any other length is a DecodeError
// with kind ErrSizeMismatch. A correctly sized buffer always decodes.
func Decode(data []byte) (*types.ExtCsdInfo, error) {
	if len(data) != types.ExtCsdSize {
		return nil, types.NewSizeMismatchError("ext_csd", types.ExtCsdSize, len(data))
	}

	return &types.ExtCsdInfo{
		Revision:           data[types.ExtCsdRevOffset],
		CardType:           data[types.ExtCsdCardTypeOffset],
		BootSizeMultiplier: data[types.ExtCsdBootSizeMultOffset],
		UserSectorCount:    binary.LittleEndian.Uint32(data[types.ExtCsdSecCountOffset : types.ExtCsdSecCountOffset+4]),
	}, nil
}

// Encode builds a 512-byte EXT_CSD register holding the given fields and
// zeroes everywhere else. The emulator uses it to synthesise a register from
// image sizes.
func Encode(info types.ExtCsdInfo) []byte {
	data := make([]byte, types.ExtCsdSize)
	data[types.ExtCsdRevOffset] = info.Revision
	data[types.ExtCsdCardTypeOffset] = info.CardType
	data[types.ExtCsdBootSizeMultOffset] = info.BootSizeMultiplier
	binary.LittleEndian.PutUint32(data[types.ExtCsdSecCountOffset:types.ExtCsdSecCountOffset+4], info.UserSectorCount)
	return data
}
