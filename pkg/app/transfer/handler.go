package transfer

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/deploymenttheory/go-emmc/internal/services"
	"github.com/deploymenttheory/go-emmc/internal/types"
	"github.com/deploymenttheory/go-emmc/pkg/app"
)

// HandleRead reads a sector range of a region into a file. EXT_CSD is read
// first to size the region.
func HandleRead(ctx *app.Context, sess *app.Session, req *ReadRequest) (*RangeResponse, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	region, _ := types.ParseRegion(req.Region)

	info, err := sess.RefreshExtCsd()
	if err != nil {
		return nil, err
	}

	extent := types.RegionExtent(region, *info)
	count := extent.ResolveCount(req.Start, req.Count)
	if err := extent.CheckRange(req.Start, count); err != nil {
		return nil, app.Wrap("read rejected", err)
	}

	ctx.Logger.Info("reading sectors", "region", region.Name, "start", req.Start, "count", count, "output", req.OutPath)

	started := time.Now()
	svc := services.NewSectorIOService(sess.Device(), sess.ServiceOptions()...)
	n, err := readToFile(req.OutPath, func(f *os.File) (uint64, error) {
		return svc.ReadRange(ctx, extent, req.Start, count, f)
	})
	if err != nil {
		return nil, app.Wrap("read failed", err)
	}

	return &RangeResponse{
		Operation: "read",
		Target:    extent.Name,
		Region:    region.Name,
		Start:     req.Start,
		Sectors:   n,
		Path:      req.OutPath,
		FileBytes: int64(n) * types.SectorSize,
		Elapsed:   time.Since(started),
	}, nil
}

// HandleWrite writes a file to a region starting at a sector. The last
// sector is zero padded.
func HandleWrite(ctx *app.Context, sess *app.Session, req *WriteRequest) (*RangeResponse, error) {
	size, err := req.Validate()
	if err != nil {
		return nil, err
	}
	region, _ := types.ParseRegion(req.Region)

	info, err := sess.RefreshExtCsd()
	if err != nil {
		return nil, err
	}

	extent := types.RegionExtent(region, *info)
	if err := extent.CheckRange(req.Start, types.SectorsFor(size)); err != nil {
		return nil, app.Wrap("write rejected", err)
	}

	ctx.Logger.Info("writing sectors", "region", region.Name, "start", req.Start, "input", req.InPath, "bytes", size)

	started := time.Now()
	svc := services.NewSectorIOService(sess.Device(), sess.ServiceOptions()...)
	n, err := writeFromFile(req.InPath, func(f *os.File) (uint64, error) {
		return svc.WriteRange(ctx, extent, req.Start, f, size)
	})
	if err != nil {
		return nil, app.Wrap("write failed", err)
	}

	return &RangeResponse{
		Operation: "write",
		Target:    extent.Name,
		Region:    region.Name,
		Start:     req.Start,
		Sectors:   n,
		Path:      req.InPath,
		FileBytes: size,
		Elapsed:   time.Since(started),
	}, nil
}

// HandleReadPartition reads a whole GPT partition into a file.
func HandleReadPartition(ctx *app.Context, sess *app.Session, req *ReadPartitionRequest) (*RangeResponse, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	table, err := readTable(ctx, sess)
	if err != nil {
		return nil, err
	}

	partition, err := services.ResolvePartition(table, req.Label)
	if err != nil {
		return nil, app.Wrap("read failed", err)
	}
	logPartition(ctx, partition)

	started := time.Now()
	svc := services.NewSectorIOService(sess.Device(), sess.ServiceOptions()...)
	n, err := readToFile(req.OutPath, func(f *os.File) (uint64, error) {
		_, n, err := svc.ReadPartition(ctx, table, partition.Name, f)
		return n, err
	})
	if err != nil {
		return nil, app.Wrap("read failed", err)
	}

	return &RangeResponse{
		Operation: "read",
		Target:    partition.Name,
		Region:    types.RegionUserData.Name,
		Start:     partition.FirstLBA,
		Sectors:   n,
		Path:      req.OutPath,
		FileBytes: int64(n) * types.SectorSize,
		Elapsed:   time.Since(started),
		Partition: newPartitionInfo(*partition),
	}, nil
}

// HandleWritePartition writes a file over a GPT partition. Oversized input is
// rejected before any I/O. Input smaller than the partition is written only
// when AssumeYes is set or Confirm agrees; the tail of the partition is left
// as it is.
func HandleWritePartition(ctx *app.Context, sess *app.Session, req *WritePartitionRequest) (*RangeResponse, error) {
	size, err := req.Validate()
	if err != nil {
		return nil, err
	}

	table, err := readTable(ctx, sess)
	if err != nil {
		return nil, err
	}

	svc := services.NewSectorIOService(sess.Device(), sess.ServiceOptions()...)
	plan, err := svc.PlanPartitionWrite(table, req.Label, size)
	if err != nil {
		return nil, app.Wrap("write rejected", err)
	}
	logPartition(ctx, &plan.Partition)

	confirmed := req.AssumeYes
	if plan.Short() && !confirmed {
		ctx.Logger.Warn("input is smaller than partition",
			"input_sectors", plan.InputSectors,
			"partition_sectors", plan.Extent.Capacity,
			"untouched_sectors", plan.UntouchedSectors(),
		)
		if req.Confirm != nil {
			ok, err := req.Confirm(plan)
			if err != nil {
				return nil, app.NewError(app.ErrCodeNotConfirmed, "confirmation failed", err)
			}
			confirmed = ok
		}
	}

	started := time.Now()
	n, err := writeFromFile(req.InPath, func(f *os.File) (uint64, error) {
		return svc.WritePartition(ctx, plan, f, confirmed)
	})
	if errors.Is(err, types.ErrShortWriteNotConfirmed) {
		return nil, app.NewError(app.ErrCodeNotConfirmed, "write cancelled", err)
	}
	if err != nil {
		return nil, app.Wrap("write failed", err)
	}

	return &RangeResponse{
		Operation:        "write",
		Target:           plan.Partition.Name,
		Region:           types.RegionUserData.Name,
		Start:            plan.Partition.FirstLBA,
		Sectors:          n,
		Path:             req.InPath,
		FileBytes:        size,
		Elapsed:          time.Since(started),
		Partition:        newPartitionInfo(plan.Partition),
		UntouchedSectors: plan.UntouchedSectors(),
	}, nil
}

// HandleRoundTrip runs the destructive round-trip test. Without an explicit
// start the last Count sectors of the region are tested.
func HandleRoundTrip(ctx *app.Context, sess *app.Session, req *RoundTripRequest) (*RoundTripResponse, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	region, _ := types.ParseRegion(req.Region)

	info, err := sess.RefreshExtCsd()
	if err != nil {
		return nil, err
	}

	extent := types.RegionExtent(region, *info)
	start := req.Start
	if !req.StartSet && req.Count <= extent.Capacity {
		start = extent.Capacity - req.Count
	}

	ctx.Logger.Info("starting round-trip test", "region", region.Name, "start", start, "count", req.Count)

	svc := services.NewRoundTripService(sess.Device(), sess.ServiceOptions()...)
	result, err := svc.Run(ctx, extent, start, req.Count)
	if err != nil {
		return nil, app.Wrap("round-trip test failed", err)
	}

	return newRoundTripResponse(result), nil
}

func readTable(ctx *app.Context, sess *app.Session) (*types.GptTable, error) {
	snap, err := services.NewGPTService(sess.Device(), services.WithLogger(ctx.Logger)).ReadTable(ctx)
	if err != nil {
		return nil, app.Wrap("failed to read GPT", err)
	}
	return snap.Table, nil
}

func logPartition(ctx *app.Context, p *types.PartitionEntry) {
	ctx.Logger.Info("found partition",
		"name", p.Name,
		"type", p.TypeName,
		"first_lba", p.FirstLBA,
		"last_lba", p.LastLBA,
		"sectors", p.SizeSectors(),
	)
}

// readToFile creates path and runs fn against it. The file is removed when fn
// fails so a partial image is never mistaken for a complete one.
func readToFile(path string, fn func(*os.File) (uint64, error)) (uint64, error) {
	f, err := os.Create(path)
	if err != nil {
		return 0, app.NewError(app.ErrCodeFileAccess, fmt.Sprintf("failed to create %s", path), err)
	}

	n, err := fn(f)
	if err != nil {
		f.Close()
		os.Remove(path)
		return n, err
	}
	if err := f.Close(); err != nil {
		return n, app.NewError(app.ErrCodeFileAccess, fmt.Sprintf("failed to write %s", path), err)
	}
	return n, nil
}

func writeFromFile(path string, fn func(*os.File) (uint64, error)) (uint64, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, app.NewError(app.ErrCodeFileAccess, fmt.Sprintf("failed to open %s", path), err)
	}
	defer f.Close()
	return fn(f)
}
