package builder

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"checkpoint-builder/chain"
	"checkpoint-builder/checkpoint"
	"checkpoint-builder/logger"

	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"
)

// Options configures one build run
type Options struct {
	Policy     checkpoint.Policy
	OutputPath string
	// Known, if set, must be what the reloaded file returns for its lookup
	Known *checkpoint.KnownCheckpoint
	// Stdout receives the digest line; nil means os.Stdout
	Stdout io.Writer
}

func (o Options) stdout() io.Writer {
	if o.Stdout == nil {
		return os.Stdout
	}
	return o.Stdout
}

// Result describes a successfully written checkpoints file
type Result struct {
	Path        string
	Digest      common.Hash
	Checkpoints int
	Delivered   uint64
}

// Run drives the notifier to catch-up, writes the selected checkpoints to
// opts.OutputPath and reloads the file to check it. Every failure is fatal;
// on failure a previous file at OutputPath is left as it was.
func Run(ctx context.Context, notifier chain.Notifier, opts Options) (*Result, error) {
	selector, err := checkpoint.NewSelector(opts.Policy)
	if err != nil {
		return nil, err
	}
	notifier.AddListener(selector.OnBestBlock)

	logger.Logger.Info("Selecting checkpoints",
		zap.Uint32("interval", opts.Policy.Interval),
		zap.Duration("min_age", opts.Policy.MinAge),
		zap.Int64("cutoff", opts.Policy.Cutoff()))

	delivered, err := notifier.Run(ctx)
	if err != nil {
		return nil, fmt.Errorf("chain sync: %w", err)
	}

	logger.Logger.Info("Chain sync finished",
		zap.Uint64("headers", selector.Seen()), zap.Int("checkpoints", selector.Len()))

	set, err := selector.Finish()
	if err != nil {
		return nil, fmt.Errorf("after %d headers: %w", delivered, err)
	}

	// The new file only replaces OutputPath once it has been reloaded and checked.
	staged := opts.OutputPath + ".new"
	defer os.Remove(staged)

	digest, err := checkpoint.WriteFile(staged, set)
	if err != nil {
		return nil, err
	}
	logger.Logger.Info("Wrote checkpoints",
		zap.String("path", staged), zap.Int("count", set.Len()), zap.String("digest", digest.Hex()))

	manager, err := checkpoint.LoadFile(staged)
	if err != nil {
		return nil, fmt.Errorf("%w: reload: %v", checkpoint.ErrIntegrityMismatch, err)
	}
	if err := manager.VerifyWritten(set, digest); err != nil {
		return nil, err
	}
	if opts.Known != nil {
		if err := manager.VerifyKnown(*opts.Known); err != nil {
			return nil, err
		}
	}

	if err := os.Rename(staged, opts.OutputPath); err != nil {
		return nil, &checkpoint.IOError{Op: "rename", Path: opts.OutputPath, Err: err}
	}
	fmt.Fprintf(opts.stdout(), "Hash of checkpoints data is %s\n", digest.Hex())

	path, err := filepath.Abs(opts.OutputPath)
	if err != nil {
		path = opts.OutputPath
	}
	return &Result{
		Path:        path,
		Digest:      digest,
		Checkpoints: set.Len(),
		Delivered:   delivered,
	}, nil
}
