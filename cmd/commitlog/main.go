package main

import (
	"context"
	"os"
	"path/filepath"

	"github.com/iamNilotpal/commitlog/internal/core/domain"
	sm "github.com/iamNilotpal/commitlog/internal/core/services/segment/manager"
	"github.com/iamNilotpal/commitlog/pkg/errors"
	"github.com/iamNilotpal/commitlog/pkg/logger"
)

func main() {
	logger := logger.New("commitlog-service")
	defer logger.Sync()

	logger.Info("starting commit log segment manager")

	dir, err := os.MkdirTemp("", "commitlog")
	if err != nil {
		logger.Infow("create directory error", "error", err)
		os.Exit(1)
	}

	manager, err := sm.NewSegmentManager(
		context.Background(),
		&domain.Options{
			Directory: filepath.Join(dir, "segments"),
			CDCOptions: &domain.CDCOptions{
				Enabled:     true,
				BlockWrites: true,
				TotalSpace:  64 * 1024 * 1024,
				Directory:   filepath.Join(dir, "cdc_raw"),
			},
		},
		logger,
	)
	if err != nil {
		if errors.IsValidationError(err) {
			err := errors.AsValidationError(err)
			logger.Infow("create manager error", "field", err.Field, "value", err.Value, "error", err.Err)
		} else {
			logger.Infow("create manager error", "error", err)
		}
		os.Exit(1)
	}

	mutation := &domain.Mutation{
		Keyspace:     "app",
		Payload:      []byte(`{"op":"insert","table":"users","id":42}`),
		TrackedByCDC: true,
	}

	alloc, err := manager.Allocate(mutation, int64(len(mutation.Payload)))
	if err != nil {
		if errors.IsCDCWriteError(err) {
			logger.Infow("cdc write rejected", "error", err)
		} else {
			logger.Infow("allocate error", "error", err)
		}
	} else {
		if err := alloc.Write(mutation.Payload); err != nil {
			logger.Infow("write error", "error", err)
		}
		logger.Infow("mutation persisted",
			"segment", alloc.Segment().ID(),
			"offset", alloc.Offset(),
			"cdcState", alloc.Segment().CDCState().String(),
			"cdcTotalSize", manager.UpdateCDCTotalSize(),
		)
	}

	if err := manager.Close(context.Background()); err != nil {
		logger.Infow("error closing manager", "error", err)
	}
}
