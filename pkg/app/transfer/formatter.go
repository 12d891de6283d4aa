package transfer

import (
	"encoding/json"
	"fmt"
	"io"

	"gopkg.in/yaml.v3"
)

// FormatRange writes a transfer report in the given format
func FormatRange(w io.Writer, response *RangeResponse, format string) error {
	switch format {
	case "json":
		return formatJSON(w, response)
	case "yaml":
		return formatYAML(w, response)
	case "table":
		return formatRangeTable(w, response)
	default:
		return fmt.Errorf("unsupported output format: %s", format)
	}
}

// FormatRoundTrip writes a round-trip report in the given format
func FormatRoundTrip(w io.Writer, response *RoundTripResponse, format string) error {
	switch format {
	case "json":
		return formatJSON(w, response)
	case "yaml":
		return formatYAML(w, response)
	case "table":
		return formatRoundTripTable(w, response)
	default:
		return fmt.Errorf("unsupported output format: %s", format)
	}
}

func formatRangeTable(w io.Writer, response *RangeResponse) error {
	if p := response.Partition; p != nil {
		fmt.Fprintf(w, "Partition: %s\n", p.Name)
		fmt.Fprintf(w, "  Type:  %s\n", p.TypeName)
		fmt.Fprintf(w, "  Range: LBA %d - %d\n", p.FirstLBA, p.LastLBA)
		fmt.Fprintf(w, "  Size:  %d sectors (%.2f MiB)\n", p.SizeSectors, p.SizeMiB)
	} else {
		fmt.Fprintf(w, "Region: %s, start sector %d\n", response.Region, response.Start)
	}

	direction := "to"
	if response.Operation == "write" {
		direction = "from"
	}
	fmt.Fprintf(w, "File: %s %s (%d bytes)\n", direction, response.Path, response.FileBytes)

	verb := "Read"
	if response.Operation == "write" {
		verb = "Write"
	}
	fmt.Fprintf(w, "%s complete: %d sectors in %.1fs (avg %.2f MB/s)\n",
		verb, response.Sectors, response.Elapsed.Seconds(), response.MegabytesPerSecond())

	if response.UntouchedSectors > 0 {
		fmt.Fprintf(w, "Warning: %d sectors at the end of '%s' were left unchanged\n", response.UntouchedSectors, response.Target)
	}
	return nil
}

func formatRoundTripTable(w io.Writer, response *RoundTripResponse) error {
	r := response.RoundTripResult
	fmt.Fprintf(w, "Round-trip test: %s sectors %d to %d (%d sectors)\n", r.Target, r.Start, r.Start+r.Count-1, r.Count)
	fmt.Fprintf(w, "Test pattern: 0x00C0FFEE ^ word_index\n")
	if r.Restored {
		fmt.Fprintf(w, "Original data restored in %.1fs\n", r.Elapsed.Seconds())
	}
	fmt.Fprintln(w)

	if r.Passed() {
		fmt.Fprintf(w, "PASSED: All %d sectors verified successfully\n", r.Count)
		return nil
	}

	fmt.Fprintf(w, "FAILED: %d sector(s) had verification errors\n", len(r.Mismatches))
	for i, m := range r.Mismatches {
		if i == MaxReportedMismatches {
			break
		}
		fmt.Fprintf(w, "  Sector %d offset %d: expected 0x%02x, got 0x%02x\n", m.Sector, m.Offset, m.Expected, m.Got)
	}
	if extra := len(r.Mismatches) - MaxReportedMismatches; extra > 0 {
		fmt.Fprintf(w, "  ... and %d more errors\n", extra)
	}
	return nil
}

func formatJSON(w io.Writer, v any) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(v)
}

func formatYAML(w io.Writer, v any) error {
	encoder := yaml.NewEncoder(w)
	defer encoder.Close()
	encoder.SetIndent(2)
	return encoder.Encode(v)
}
