// Copyright 2025 Lemon4ksan. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package ziphdr

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"golang.org/x/sync/errgroup"
)

// Verify decompresses every regular entry and checks its CRC-32 and size.
// At most workers entries are read at once; workers < 1 means one.
// The first failure cancels the remaining reads and is returned.
func (a *Archive) Verify(ctx context.Context, workers int) error {
	if workers < 1 {
		workers = 1
	}

	eg, ctx := errgroup.WithContext(ctx)
	eg.SetLimit(workers)

	for i, fh := range a.model.CentralDirectory.FileHeaders {
		if fh == nil || fh.IsDir {
			continue
		}
		eg.Go(func() error {
			if err := a.verifyEntry(ctx, fh, i); err != nil {
				return fmt.Errorf("verify %q: %w", fh.Name, err)
			}
			return nil
		})
	}

	if err := eg.Wait(); err != nil {
		return err
	}
	a.logger.Debug("verified archive", slog.Int("entries", len(a.model.CentralDirectory.FileHeaders)))
	return nil
}

// verifyEntry checks fh, the record at position i. Records are addressed by
// position so that names differing only in case are each read in full.
func (a *Archive) verifyEntry(ctx context.Context, fh *FileHeader, i int) error {
	a.mu.RLock()
	rc, err := openEntry(ctx, a.model, fh, i, a.src, a.decompressors)
	a.mu.RUnlock()
	if err != nil {
		return err
	}

	if _, err := io.Copy(io.Discard, rc); err != nil {
		rc.Close()
		return err
	}
	return rc.Close()
}
