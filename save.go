// SPDX-License-Identifier: MIT
// Copyright (c) 2026 WoozyMasta
// Source: github.com/woozymasta/vbsp

package vbsp

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// SaveFile writes the map to path through a temporary file in the same
// directory and renames it over the target. Afterwards the File is backed
// by path, even when it was opened from another location.
func (f *File) SaveFile(ctx context.Context, path string, opts SaveFileOptions) error {
	path = strings.TrimSpace(path)
	if path == "" {
		return fmt.Errorf("save BSP: %w", os.ErrInvalid)
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	if f.closed {
		return ErrClosed
	}

	opts.applyDefaults()
	log := opts.SaveOptions.Logger
	if log == nil {
		log = f.log()
	}

	backup, err := makeBackup(path, opts)
	if err != nil {
		return err
	}
	if backup != "" {
		log.Info("backup created", "path", backup)
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		_ = removeIfExists(backup)
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpName := tmp.Name()

	fail := func(err error) error {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		if backup != "" {
			_ = removeIfExists(backup)
		}
		return err
	}

	res, err := f.save(ctx, tmp, opts.SaveOptions)
	if err != nil {
		return fail(err)
	}

	if err := tmp.Sync(); err != nil {
		return fail(fmt.Errorf("sync temp file: %w", err))
	}

	if err := tmp.Close(); err != nil {
		return fail(fmt.Errorf("close temp file: %w", err))
	}

	oldPath := f.path
	if f.backing != nil {
		_ = f.backing.close()
	}

	if err := os.Rename(tmpName, path); err != nil {
		_ = os.Remove(tmpName)
		if f.backing != nil && oldPath != "" {
			if fh, openErr := os.Open(oldPath); openErr == nil {
				f.backing.swap(fh)
			}
		}
		return fmt.Errorf("%w: %w", ErrSwap, err)
	}

	fh, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("%w: reopen %s: %w", ErrSwap, path, err)
	}

	if f.backing == nil {
		f.backing = &fileHandle{}
	}
	f.backing.swap(fh)
	f.path = path
	f.commit(res, f.backing)

	log.Info("saved", "path", path)
	return nil
}
