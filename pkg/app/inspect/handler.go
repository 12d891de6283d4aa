package inspect

import (
	"os"

	"github.com/deploymenttheory/go-emmc/internal/services"
	"github.com/deploymenttheory/go-emmc/pkg/app"
)

// HandleExtCsd reads and decodes EXT_CSD, saving the raw register when an
// output path is set.
func HandleExtCsd(ctx *app.Context, sess *app.Session, req *ExtCsdRequest) (*ExtCsdResponse, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	snap, err := sess.ExtCsd()
	if err != nil {
		return nil, err
	}

	resp := newExtCsdResponse(snap.Info)
	if req.OutPath != "" {
		if err := os.WriteFile(req.OutPath, snap.Raw, 0o644); err != nil {
			return nil, app.NewError(app.ErrCodeFileAccess, "failed to save EXT_CSD", err)
		}
		resp.DumpPath = req.OutPath
		ctx.Log("saved EXT_CSD", "path", req.OutPath, "bytes", len(snap.Raw))
	}

	return resp, nil
}

// HandleGPT reads the primary GPT from userdata. With an output path set the
// raw MBR, header and entry sectors are written there.
func HandleGPT(ctx *app.Context, sess *app.Session, req *GPTRequest) (*GPTResponse, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	svc := services.NewGPTService(sess.Device(), services.WithLogger(ctx.Logger))
	snap, err := svc.ReadTable(ctx)
	if err != nil {
		return nil, app.Wrap("failed to read GPT", err)
	}

	ctx.Log("decoded GPT",
		"partitions", len(snap.Table.Partitions),
		"entries", snap.Table.Header.NumberOfPartitionEntries,
	)

	resp := newGPTResponse(snap.Table)
	if req.OutPath != "" {
		raw := snap.Raw()
		if err := os.WriteFile(req.OutPath, raw, 0o644); err != nil {
			return nil, app.NewError(app.ErrCodeFileAccess, "failed to save GPT", err)
		}
		resp.DumpPath = req.OutPath
		resp.DumpBytes = len(raw)
	}

	return resp, nil
}
