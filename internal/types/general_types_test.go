package types

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseRegion(t *testing.T) {
	tests := []struct {
		input   string
		want    Region
		wantErr bool
	}{
		{input: "boot0", want: RegionBoot0},
		{input: "BOOT1", want: RegionBoot1},
		{input: " userdata ", want: RegionUserData},
		{input: "user", wantErr: true},
		{input: "", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := ParseRegion(tt.input)
			if tt.wantErr {
				require.Error(t, err)
				assert.Contains(t, err.Error(), "valid: boot0, boot1, userdata")
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestRegionIDs(t *testing.T) {
	assert.Equal(t, RegionID(0), RegionUserData.ID)
	assert.Equal(t, RegionID(1), RegionBoot0.ID)
	assert.Equal(t, RegionID(2), RegionBoot1.ID)
	assert.Equal(t, []string{"boot0", "boot1", "userdata"}, RegionNames())
}

func TestSectorsFor(t *testing.T) {
	tests := []struct {
		size int64
		want uint64
	}{
		{-1, 0},
		{0, 0},
		{1, 1},
		{512, 1},
		{513, 2},
		{1 << 20, 2048},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, SectorsFor(tt.size), "size %d", tt.size)
	}
}

func TestSectorsToMiB(t *testing.T) {
	assert.Equal(t, 1.0, SectorsToMiB(2048))
	assert.Equal(t, 0.5, SectorsToMiB(1024))
}
