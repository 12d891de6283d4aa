package transfer

import (
	"bytes"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/deploymenttheory/go-emmc/internal/services"
)

func TestFormatRange_Table(t *testing.T) {
	tests := []struct {
		name     string
		response RangeResponse
		contains []string
		excludes []string
	}{
		{
			name: "region read",
			response: RangeResponse{
				Operation: "read", Target: "boot0", Region: "boot0", Start: 0,
				Sectors: 2048, Path: "boot0.bin", FileBytes: 1 << 20, Elapsed: 2 * time.Second,
			},
			contains: []string{
				"Region: boot0, start sector 0",
				"File: to boot0.bin (1048576 bytes)",
				"Read complete: 2048 sectors in 2.0s (avg 0.50 MB/s)",
			},
			excludes: []string{"Warning"},
		},
		{
			name: "short partition write",
			response: RangeResponse{
				Operation: "write", Target: "boot_a", Region: "userdata", Start: 64,
				Sectors: 10, Path: "boot.img", FileBytes: 5000, Elapsed: time.Second,
				Partition:        &PartitionInfo{Name: "boot_a", TypeName: "Linux Filesystem", FirstLBA: 64, LastLBA: 95, SizeSectors: 32, SizeMiB: 0.015625},
				UntouchedSectors: 22,
			},
			contains: []string{
				"Partition: boot_a",
				"Range: LBA 64 - 95",
				"Size:  32 sectors (0.02 MiB)",
				"File: from boot.img (5000 bytes)",
				"Write complete: 10 sectors",
				"Warning: 22 sectors at the end of 'boot_a' were left unchanged",
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			require.NoError(t, FormatRange(&buf, &tt.response, "table"))
			for _, s := range tt.contains {
				assert.Contains(t, buf.String(), s)
			}
			for _, s := range tt.excludes {
				assert.NotContains(t, buf.String(), s)
			}
		})
	}
}

func TestFormatRange_Structured(t *testing.T) {
	resp := &RangeResponse{Operation: "read", Target: "rootfs", Region: "userdata", Sectors: 3}

	var js bytes.Buffer
	require.NoError(t, FormatRange(&js, resp, "json"))
	var decoded RangeResponse
	require.NoError(t, json.Unmarshal(js.Bytes(), &decoded))
	assert.Equal(t, *resp, decoded)
	assert.NotContains(t, js.String(), "partition")

	var ym bytes.Buffer
	require.NoError(t, FormatRange(&ym, resp, "yaml"))
	assert.Contains(t, ym.String(), "target: rootfs")

	assert.EqualError(t, FormatRange(&ym, resp, "xml"), "unsupported output format: xml")
}

func TestFormatRoundTrip_Table(t *testing.T) {
	mismatches := make([]services.Mismatch, 7)
	for i := range mismatches {
		mismatches[i] = services.Mismatch{Sector: uint64(8000 + i), Offset: i, Expected: 0xEE, Got: 0x00}
	}

	tests := []struct {
		name     string
		result   services.RoundTripResult
		contains []string
		excludes []string
	}{
		{
			name:   "passed",
			result: services.RoundTripResult{Target: "boot1", Region: "boot1", Start: 8092, Count: 100, Mismatches: []services.Mismatch{}, Restored: true},
			contains: []string{
				"Round-trip test: boot1 sectors 8092 to 8191 (100 sectors)",
				"Original data restored",
				"PASSED: All 100 sectors verified successfully",
			},
			excludes: []string{"FAILED"},
		},
		{
			name:   "failed",
			result: services.RoundTripResult{Target: "boot1", Region: "boot1", Start: 8000, Count: 100, Mismatches: mismatches, Restored: true},
			contains: []string{
				"FAILED: 7 sector(s) had verification errors",
				"Sector 8000 offset 0: expected 0xee, got 0x00",
				"Sector 8004 offset 4",
				"... and 2 more errors",
			},
			excludes: []string{"Sector 8005", "PASSED"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := tt.result
			var buf bytes.Buffer
			require.NoError(t, FormatRoundTrip(&buf, newRoundTripResponse(&result), "table"))
			for _, s := range tt.contains {
				assert.Contains(t, buf.String(), s)
			}
			for _, s := range tt.excludes {
				assert.NotContains(t, buf.String(), s)
			}
		})
	}
}

func TestFormatRoundTrip_Structured(t *testing.T) {
	result := &services.RoundTripResult{
		Target:     "boot1",
		Region:     "boot1",
		Start:      10,
		Count:      2,
		Mismatches: []services.Mismatch{{Sector: 11, Offset: 3, Expected: 1, Got: 2}},
		Restored:   true,
	}
	resp := newRoundTripResponse(result)

	var js bytes.Buffer
	require.NoError(t, FormatRoundTrip(&js, resp, "json"))
	var decoded map[string]any
	require.NoError(t, json.Unmarshal(js.Bytes(), &decoded))
	assert.Equal(t, "FAILED", decoded["status"])
	assert.Equal(t, "boot1", decoded["target"])
	assert.Len(t, decoded["mismatches"], 1)

	var ym bytes.Buffer
	require.NoError(t, FormatRoundTrip(&ym, resp, "yaml"))
	var fromYAML map[string]any
	require.NoError(t, yaml.Unmarshal(ym.Bytes(), &fromYAML))
	assert.Equal(t, "FAILED", fromYAML["status"])
	assert.Equal(t, 10, fromYAML["start"])
}
