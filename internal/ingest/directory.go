package ingest

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"path/filepath"
	"strings"

	"github.com/joseph-ayodele/receipts-reconciler/constants"
)

// Walk returns the accepted files under root in lexical order. Walk errors on
// individual entries are counted as failures and skipped.
func Walk(root string, skipHidden bool) ([]string, DirStats, error) {
	if strings.TrimSpace(root) == "" {
		return nil, DirStats{}, errors.New("root path is required")
	}

	var paths []string
	var stats DirStats
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, walkErr error) error {
		stats.Scanned++
		if walkErr != nil {
			stats.Failed++
			return nil
		}
		if skipHidden && path != root && isHidden(path) {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if d.IsDir() || !constants.IsAccepted(path) {
			return nil
		}
		stats.Matched++
		paths = append(paths, path)
		return nil
	})
	if err != nil {
		return paths, stats, fmt.Errorf("walk: %w", err)
	}
	return paths, stats, nil
}

// IngestDirectory enqueues every accepted file under root.
func IngestDirectory(ctx context.Context, q Enqueuer, root string, skipHidden bool) ([]Result, DirStats, error) {
	paths, stats, err := Walk(root, skipHidden)
	if err != nil {
		return nil, stats, err
	}
	results := make([]Result, 0, len(paths))
	for _, p := range paths {
		job, err := q.Enqueue(ctx, p)
		if err != nil {
			results = append(results, Result{Path: p, Err: err.Error()})
			stats.Failed++
			continue
		}
		results = append(results, Result{Path: p, JobID: job.ID})
		stats.Succeeded++
	}
	return results, stats, nil
}
