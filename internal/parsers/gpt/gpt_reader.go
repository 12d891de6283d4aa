package gpt

import (
	"encoding/binary"
	"fmt"
	"strings"

	"github.com/deploymenttheory/go-emmc/internal/types"
)

// DecodeHeader parses the primary GPT header sector.
// The buffer must be exactly one sector and start with "EFI PART". No other
// field is validated; CRCs are returned as stored.
func DecodeHeader(sector []byte) (*types.GptHeader, error) {
	if len(sector) != types.SectorSize {
		return nil, types.NewSizeMismatchError("gpt header", types.SectorSize, len(sector))
	}

	signature := string(sector[0:8])
	if signature != types.GPTSignature {
		return nil, &types.DecodeError{
			Structure: "gpt header",
			Kind:      types.ErrInvalidSignature,
			Message:   fmt.Sprintf("expected %q, got %q", types.GPTSignature, strings.TrimRight(signature, "\x00")),
		}
	}

	le := binary.LittleEndian
	return &types.GptHeader{
		Signature:                signature,
		Revision:                 le.Uint32(sector[8:12]),
		HeaderSize:               le.Uint32(sector[12:16]),
		HeaderCRC32:              le.Uint32(sector[16:20]),
		CurrentLBA:               le.Uint64(sector[24:32]),
		BackupLBA:                le.Uint64(sector[32:40]),
		FirstUsableLBA:           le.Uint64(sector[40:48]),
		LastUsableLBA:            le.Uint64(sector[48:56]),
		DiskGUID:                 guidFromBytes(sector[56:72]),
		PartitionEntryLBA:        le.Uint64(sector[72:80]),
		NumberOfPartitionEntries: le.Uint32(sector[80:84]),
		SizeOfPartitionEntry:     le.Uint32(sector[84:88]),
		PartitionEntryArrayCRC32: le.Uint32(sector[88:92]),
	}, nil
}

// DecodePartitionEntry parses one 128-byte partition entry.
// An entry whose type GUID is all zero is an unused slot and yields nil with
// no error. Index is left at zero; DecodeTable assigns it.
func DecodePartitionEntry(entry []byte) (*types.PartitionEntry, error) {
	if len(entry) != types.GPTEntrySize {
		return nil, types.NewSizeMismatchError("gpt partition entry", types.GPTEntrySize, len(entry))
	}

	if isZero(entry[0:16]) {
		return nil, nil
	}

	le := binary.LittleEndian
	typeGUID := guidFromBytes(entry[0:16])
	return &types.PartitionEntry{
		TypeGUID:   typeGUID,
		TypeName:   PartitionTypeName(typeGUID),
		UniqueGUID: guidFromBytes(entry[16:32]),
		FirstLBA:   le.Uint64(entry[32:40]),
		LastLBA:    le.Uint64(entry[40:48]),
		Attributes: le.Uint64(entry[48:56]),
		Name:       decodeUTF16LE(entry[56 : 56+types.GPTEntryNameSize]),
	}, nil
}

// DecodeProtectiveMBR summarises the first partition record of LBA 0.
func DecodeProtectiveMBR(sector []byte) (*types.ProtectiveMBR, error) {
	if len(sector) != types.SectorSize {
		return nil, types.NewSizeMismatchError("protective mbr", types.SectorSize, len(sector))
	}

	// First partition record at 446, boot signature at 510.
	record := sector[446:462]
	return &types.ProtectiveMBR{
		BootSignature: binary.LittleEndian.Uint16(sector[510:512]),
		OSType:        record[4],
		StartingLBA:   binary.LittleEndian.Uint32(record[8:12]),
		SizeInLBA:     binary.LittleEndian.Uint32(record[12:16]),
	}, nil
}

// DecodeTable builds a partition table from the raw MBR sector, header sector
// and entry array.
//
// count slots of entrySize bytes are walked in order. When entries is shorter
// than count*entrySize the walk stops at the last complete slot without error.
// Each live entry keeps its original slot index, so unused slots leave gaps.
// Slots larger than 128 bytes are decoded from their first 128 bytes.
func DecodeTable(mbr, header, entries []byte, count, entrySize uint32) (*types.GptTable, error) {
	protective, err := DecodeProtectiveMBR(mbr)
	if err != nil {
		return nil, err
	}

	hdr, err := DecodeHeader(header)
	if err != nil {
		return nil, err
	}

	if entrySize < types.GPTEntrySize {
		return nil, &types.DecodeError{
			Structure: "gpt partition entry",
			Kind:      types.ErrSizeMismatch,
			Message:   fmt.Sprintf("entry size %d is smaller than %d bytes", entrySize, types.GPTEntrySize),
		}
	}

	table := &types.GptTable{
		MBR:        *protective,
		Header:     *hdr,
		Partitions: make([]types.PartitionEntry, 0),
	}

	for i := uint64(0); i < uint64(count); i++ {
		offset := i * uint64(entrySize)
		if offset+uint64(entrySize) > uint64(len(entries)) {
			break
		}

		entry, err := DecodePartitionEntry(entries[offset : offset+types.GPTEntrySize])
		if err != nil {
			return nil, fmt.Errorf("slot %d: %w", i, err)
		}
		if entry == nil {
			continue
		}

		entry.Index = int(i)
		table.Partitions = append(table.Partitions, *entry)
	}

	return table, nil
}
