// SPDX-License-Identifier: MIT
// Copyright (c) 2026 WoozyMasta
// Source: github.com/woozymasta/vbsp

package vbsp

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// backupPath returns destination of a new backup for path, empty for BackupNone.
func backupPath(path string, mode BackupMode, now time.Time) (string, error) {
	switch mode {
	case BackupNone:
		return "", nil
	case BackupRotate:
		return path + ".bak", nil
	case BackupTimestamp:
		ext := filepath.Ext(path)
		stem := strings.TrimSuffix(path, ext)
		if ext == "" {
			ext = ".bsp"
		}
		return fmt.Sprintf("%s_backup%d%s", stem, now.UnixMilli(), ext), nil
	default:
		return "", fmt.Errorf("%w: unknown backup mode %q", ErrBackup, mode)
	}
}

// makeBackup copies the existing file at path according to opts.
// It returns the created backup path, empty when nothing was copied.
func makeBackup(path string, opts SaveFileOptions) (string, error) {
	dst, err := backupPath(path, opts.Backup, time.Now())
	if err != nil || dst == "" {
		return "", err
	}

	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		return "", nil
	} else if err != nil {
		return "", fmt.Errorf("%w: stat %s: %w", ErrBackup, path, err)
	}

	if opts.Backup == BackupRotate {
		if err := prepareBackupSlot(dst, opts.BackupKeep); err != nil {
			return "", fmt.Errorf("%w: %w", ErrBackup, err)
		}
	}

	if err := copyFile(path, dst); err != nil {
		_ = os.Remove(dst)
		return "", fmt.Errorf("%w: %w", ErrBackup, err)
	}

	return dst, nil
}

// copyFile copies src to a new file dst, keeping src permissions.
func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return fmt.Errorf("open %s: %w", src, err)
	}
	defer func() { _ = in.Close() }()

	fi, err := in.Stat()
	if err != nil {
		return fmt.Errorf("stat %s: %w", src, err)
	}

	out, err := os.OpenFile(dst, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, fi.Mode().Perm())
	if err != nil {
		return fmt.Errorf("create %s: %w", dst, err)
	}

	buf, release := acquireCopyBuffer()
	defer release()

	if _, err := io.CopyBuffer(out, in, buf); err != nil {
		_ = out.Close()
		return fmt.Errorf("copy %s: %w", src, err)
	}

	if err := out.Close(); err != nil {
		return fmt.Errorf("close %s: %w", dst, err)
	}

	return nil
}

// prepareBackupSlot rotates existing backup generations before a new backup.
// keep 1 leaves only backupPath, N keeps backupPath and backupPath.1..N-1.
func prepareBackupSlot(backupPath string, keep int) error {
	if keep < 1 {
		keep = 1
	}

	if keep == 1 {
		return removeIfExists(backupPath)
	}

	oldest := fmt.Sprintf("%s.%d", backupPath, keep-1)
	if err := removeIfExists(oldest); err != nil {
		return err
	}

	for i := keep - 2; i >= 1; i-- {
		from := fmt.Sprintf("%s.%d", backupPath, i)
		to := fmt.Sprintf("%s.%d", backupPath, i+1)
		if err := renameIfExists(from, to); err != nil {
			return err
		}
	}

	return renameIfExists(backupPath, backupPath+".1")
}

// renameIfExists renames source to destination when source exists.
func renameIfExists(from string, to string) error {
	_, err := os.Stat(from)
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("stat %s: %w", from, err)
	}

	if err := removeIfExists(to); err != nil {
		return err
	}

	if err := os.Rename(from, to); err != nil {
		return fmt.Errorf("rename %s to %s: %w", from, to, err)
	}

	return nil
}

// removeIfExists removes file when present.
func removeIfExists(path string) error {
	err := os.Remove(path)
	if errors.Is(err, os.ErrNotExist) || err == nil {
		return nil
	}

	return fmt.Errorf("remove %s: %w", path, err)
}
