package inspect

import (
	"encoding/json"
	"fmt"
	"io"
	"text/tabwriter"

	"gopkg.in/yaml.v3"
)

// FormatExtCsd writes an EXT_CSD response in the given format
func FormatExtCsd(w io.Writer, response *ExtCsdResponse, format string) error {
	switch format {
	case "json":
		return formatJSON(w, response)
	case "yaml":
		return formatYAML(w, response)
	case "table":
		return formatExtCsdTable(w, response)
	default:
		return fmt.Errorf("unsupported output format: %s", format)
	}
}

// FormatGPT writes a GPT response in the given format
func FormatGPT(w io.Writer, response *GPTResponse, format string) error {
	switch format {
	case "json":
		return formatJSON(w, response)
	case "yaml":
		return formatYAML(w, response)
	case "table":
		return formatGPTTable(w, response)
	default:
		return fmt.Errorf("unsupported output format: %s", format)
	}
}

func formatExtCsdTable(w io.Writer, response *ExtCsdResponse) error {
	fmt.Fprintf(w, "EXT_CSD revision: %d (%s)\n", response.Revision, response.RevisionName)
	fmt.Fprintf(w, "Card type:        0x%02X\n", response.CardType)
	fmt.Fprintf(w, "BOOT_SIZE_MULT:   %d\n", response.BootSizeMultiplier)
	fmt.Fprintf(w, "SEC_COUNT:        %d\n\n", response.UserSectorCount)

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintf(tw, "REGION\tID\tSECTORS\tSIZE\n")
	fmt.Fprintf(tw, "------\t--\t-------\t----\n")
	for _, r := range response.Regions {
		fmt.Fprintf(tw, "%s\t%d\t%d\t%.2f MiB\n", r.Name, r.ID, r.Sectors, r.MiB)
	}
	if err := tw.Flush(); err != nil {
		return err
	}

	if response.DumpPath != "" {
		fmt.Fprintf(w, "\nEXT_CSD saved to %s\n", response.DumpPath)
	}
	return nil
}

func formatGPTTable(w io.Writer, response *GPTResponse) error {
	mbr := response.ProtectiveMBR
	if mbr.IsProtective() {
		fmt.Fprintf(w, "Protective MBR: type 0x%02X, LBA %d, %d sectors\n", mbr.OSType, mbr.StartingLBA, mbr.SizeInLBA)
	} else {
		fmt.Fprintf(w, "Protective MBR: not present (signature 0x%04X, type 0x%02X)\n", mbr.BootSignature, mbr.OSType)
	}

	h := response.Header
	fmt.Fprintf(w, "GPT revision %s, header %d bytes, CRC32 %s\n", h.Revision, h.HeaderSize, h.HeaderCRC32)
	fmt.Fprintf(w, "Disk GUID:    %s\n", h.DiskGUID)
	fmt.Fprintf(w, "Current LBA:  %d, backup LBA: %d\n", h.CurrentLBA, h.BackupLBA)
	fmt.Fprintf(w, "Usable LBAs:  %d - %d\n", h.FirstUsableLBA, h.LastUsableLBA)
	fmt.Fprintf(w, "Entries:      %d x %d bytes at LBA %d, CRC32 %s\n\n",
		h.NumberOfPartitionEntries, h.SizeOfPartitionEntry, h.PartitionEntryLBA, h.PartitionEntryArrayCRC32)

	if len(response.Partitions) == 0 {
		fmt.Fprintln(w, "No partitions defined.")
	} else {
		tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
		fmt.Fprintf(tw, "#\tNAME\tFIRST LBA\tLAST LBA\tSECTORS\tSIZE\tTYPE\n")
		fmt.Fprintf(tw, "-\t----\t---------\t--------\t-------\t----\t----\n")
		for _, p := range response.Partitions {
			fmt.Fprintf(tw, "%d\t%s\t%d\t%d\t%d\t%.2f MiB\t%s\n",
				p.Index, p.Name, p.FirstLBA, p.LastLBA, p.SizeSectors, p.SizeMiB, p.TypeName)
		}
		if err := tw.Flush(); err != nil {
			return err
		}
	}

	if response.DumpPath != "" {
		fmt.Fprintf(w, "\nGPT saved to %s (%d bytes)\n", response.DumpPath, response.DumpBytes)
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
