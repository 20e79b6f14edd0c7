package sm

import (
	"fmt"
	"path/filepath"

	"github.com/iamNilotpal/commitlog/internal/core/domain"
	"github.com/iamNilotpal/commitlog/internal/core/domain/config"
	"github.com/iamNilotpal/commitlog/pkg/errors"
)

// Fills in zero-valued options with the recommended defaults. The CDC
// directory defaults to a "cdc_raw" sibling of the log directory.
func prepareDefaults(opts *domain.Options) *domain.Options {
	if opts == nil {
		opts = &domain.Options{}
	}
	if opts.SegmentOptions == nil {
		opts.SegmentOptions = &domain.SegmentOptions{}
	}
	if opts.CDCOptions == nil {
		opts.CDCOptions = &domain.CDCOptions{}
	}

	if opts.SegmentOptions.Prefix == "" {
		opts.SegmentOptions.Prefix = config.DefaultSegmentPrefix
	}
	if opts.SegmentOptions.MaxSegmentSize == 0 {
		opts.SegmentOptions.MaxSegmentSize = config.DefaultMaxSegmentSize
	}

	if opts.CDCOptions.Enabled {
		if opts.CDCOptions.Directory == "" && opts.Directory != "" {
			opts.CDCOptions.Directory = filepath.Join(filepath.Dir(opts.Directory), "cdc_raw")
		}
		if opts.CDCOptions.DiskCheckInterval == 0 {
			opts.CDCOptions.DiskCheckInterval = config.DefaultCDCDiskCheckInterval
		}
	}

	return opts
}

// Validate checks manager options against their constraints.
//
// Returns a ValidationError if:
//   - The log directory is missing.
//   - The segment size is below the minimum.
//   - CDC is enabled without a directory, with a negative budget, or with a
//     CDC directory equal to the log directory.
func Validate(opts *domain.Options) error {
	if opts.Directory == "" {
		return errors.NewValidationError("directory", opts.Directory, fmt.Errorf("directory is required"))
	}

	if opts.SegmentOptions.MaxSegmentSize < config.MinSegmentSize {
		return errors.NewValidationError(
			"maxSegmentSize", opts.SegmentOptions.MaxSegmentSize,
			fmt.Errorf("segment size must be at least %d bytes", config.MinSegmentSize),
		)
	}

	if !opts.CDCOptions.Enabled {
		return nil
	}

	if opts.CDCOptions.Directory == "" {
		return errors.NewValidationError(
			"cdcDirectory", opts.CDCOptions.Directory, fmt.Errorf("cdc directory is required when cdc is enabled"),
		)
	}
	if opts.CDCOptions.Directory == opts.Directory {
		return errors.NewValidationError(
			"cdcDirectory", opts.CDCOptions.Directory,
			fmt.Errorf("cdc directory must differ from the log directory"),
		)
	}
	if opts.CDCOptions.TotalSpace < 0 {
		return errors.NewValidationError(
			"cdcTotalSpace", opts.CDCOptions.TotalSpace, fmt.Errorf("cdc total space cannot be negative"),
		)
	}
	if opts.CDCOptions.DiskCheckInterval <= 0 {
		return errors.NewValidationError(
			"cdcDiskCheckInterval", opts.CDCOptions.DiskCheckInterval,
			fmt.Errorf("cdc disk check interval must be positive"),
		)
	}

	return nil
}
