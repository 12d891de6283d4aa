package services

import (
	"strings"

	"github.com/deploymenttheory/go-emmc/internal/types"
)

// FindByName returns the first live partition, in slot order, whose name
// equals name under Unicode case folding. Substrings never match.
// It returns nil when there is no such partition.
func FindByName(table *types.GptTable, name string) *types.PartitionEntry {
	if table == nil {
		return nil
	}
	for i := range table.Partitions {
		if strings.EqualFold(table.Partitions[i].Name, name) {
			return &table.Partitions[i]
		}
	}
	return nil
}

// ResolvePartition is FindByName for callers that treat absence as fatal.
// The returned NotFoundError lists every available name.
func ResolvePartition(table *types.GptTable, name string) (*types.PartitionEntry, error) {
	if p := FindByName(table, name); p != nil {
		return p, nil
	}
	available := []string{}
	if table != nil {
		available = table.Names()
	}
	return nil, &types.NotFoundError{Name: name, Available: available}
}
