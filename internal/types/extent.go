package types

import "fmt"

// Extent is a contiguous, bounded run of sectors that sector I/O can address.
// A region extent starts at LBA 0 of its region; a partition extent starts at
// the partition's first LBA inside the userdata region. Offsets passed to the
// sector services are always relative to Base.
type Extent struct {
	// Name of the region or partition, used in messages.
	Name string
	// Region that holds the extent.
	Region Region
	// Absolute LBA of the first sector of the extent.
	Base uint64
	// Number of addressable sectors.
	Capacity uint64
}

// RegionExtent returns the whole of region, sized from EXT_CSD.
func RegionExtent(region Region, info ExtCsdInfo) Extent {
	return Extent{
		Name:     region.Name,
		Region:   region,
		Base:     0,
		Capacity: info.Capacity(region),
	}
}

// PartitionExtent returns the LBA range of a GPT partition in userdata.
// Implausible entries (LastLBA < FirstLBA) get zero capacity, so every access
// is rejected by the bounds check.
func PartitionExtent(p PartitionEntry) Extent {
	capacity := uint64(0)
	if size := p.SizeSectors(); size > 0 {
		capacity = uint64(size)
	}
	return Extent{
		Name:     p.Name,
		Region:   RegionUserData,
		Base:     p.FirstLBA,
		Capacity: capacity,
	}
}

// CheckRange validates start/count against the extent capacity.
// No device transaction may be issued for a range this rejects.
func (e Extent) CheckRange(start, count uint64) error {
	if start >= e.Capacity {
		return &BoundsError{
			Target:   e.Name,
			Start:    start,
			Count:    count,
			Capacity: e.Capacity,
			Reason:   fmt.Sprintf("start sector %d exceeds %s size %d sectors", start, e.Name, e.Capacity),
		}
	}
	if count > e.Capacity-start {
		return &BoundsError{
			Target:   e.Name,
			Start:    start,
			Count:    count,
			Capacity: e.Capacity,
			Reason:   fmt.Sprintf("range %d+%d exceeds %s size %d sectors", start, count, e.Name, e.Capacity),
		}
	}
	return nil
}

// ResolveCount applies the "rest of the extent" sentinel: a zero count means
// every sector from start to the end. It performs no bounds check itself.
func (e Extent) ResolveCount(start, count uint64) uint64 {
	if count == 0 && start < e.Capacity {
		return e.Capacity - start
	}
	return count
}

// Absolute translates an extent-relative sector into a region LBA.
func (e Extent) Absolute(sector uint64) uint64 {
	return e.Base + sector
}

// String describes the extent.
func (e Extent) String() string {
	if e.Base == 0 && e.Name == e.Region.Name {
		return fmt.Sprintf("%s (%d sectors)", e.Name, e.Capacity)
	}
	return fmt.Sprintf("%s (%s LBA %d, %d sectors)", e.Name, e.Region.Name, e.Base, e.Capacity)
}
