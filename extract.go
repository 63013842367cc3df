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

	"github.com/woozymasta/pathrules"
	"golang.org/x/sync/errgroup"
)

// extractWorkItem stores one selected entry with prepared output relative paths.
type extractWorkItem struct {
	entry   *PakfileEntry
	relPath string
	relDir  string
}

// ExtractPakfile writes selected pakfile entries to dstDir. Extraction is parallelized
// by MaxWorkers; on failure it returns the first encountered error.
func (f *File) ExtractPakfile(ctx context.Context, dstDir string, opts ExtractOptions) error {
	opts.applyDefaults()

	f.mu.Lock()
	defer f.mu.Unlock()

	if f.closed {
		return ErrClosed
	}

	entries, err := selectExtractEntries(f.Pakfile().Entries(), opts.Rules)
	if err != nil {
		return err
	}

	if len(entries) == 0 {
		return nil
	}

	dstRootAbs, err := filepath.Abs(dstDir)
	if err != nil {
		return fmt.Errorf("resolve output dir: %w", err)
	}

	if err := os.MkdirAll(dstRootAbs, 0o750); err != nil {
		return fmt.Errorf("create output dir: %w", err)
	}

	workItems, err := prepareExtractWorkItems(entries, !opts.RawNames)
	if err != nil {
		return err
	}

	if err := prepareExtractDirs(dstRootAbs, workItems); err != nil {
		return err
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(opts.MaxWorkers)

	for _, task := range workItems {
		if gctx.Err() != nil {
			break
		}

		g.Go(func() error {
			return extractPreparedEntry(gctx, dstRootAbs, task, opts)
		})
	}

	if err := g.Wait(); err != nil {
		return err
	}

	return ctx.Err()
}

// selectExtractEntries filters pakfile entries by rules; empty rules select everything.
func selectExtractEntries(entries []*PakfileEntry, rules []pathrules.Rule) ([]*PakfileEntry, error) {
	rules = normalizeRules(rules)
	if len(rules) == 0 {
		return entries, nil
	}

	matcher, err := newPathMatcher(rules, pathrules.MatcherOptions{
		CaseInsensitive: true,
		DefaultAction:   extractDefaultAction(rules),
	})
	if err != nil {
		return nil, err
	}

	out := make([]*PakfileEntry, 0, len(entries))
	for _, e := range entries {
		if matcher.Match(e.Key()) {
			out = append(out, e)
		}
	}

	return out, nil
}

// extractDefaultAction includes unmatched paths when rules only exclude.
func extractDefaultAction(rules []pathrules.Rule) pathrules.Action {
	for _, r := range rules {
		if r.Action == pathrules.ActionInclude {
			return pathrules.ActionExclude
		}
	}

	return pathrules.ActionInclude
}

// prepareExtractWorkItems validates selected entries and prepares relative fs paths.
func prepareExtractWorkItems(entries []*PakfileEntry, sanitize bool) ([]extractWorkItem, error) {
	var (
		used       map[string]struct{}
		nextSuffix map[string]int
	)
	if sanitize {
		used = make(map[string]struct{}, len(entries))
		nextSuffix = make(map[string]int, len(entries))
	}

	workItems := make([]extractWorkItem, 0, len(entries))
	for _, entry := range entries {
		relative, err := extractRelativePath(entry.Key(), sanitize, used, nextSuffix)
		if err != nil {
			return nil, fmt.Errorf("entry path %s: %w", entry.Key(), err)
		}

		relPath := filepath.FromSlash(relative)
		relDir := filepath.Dir(relPath)
		if relDir == "." {
			relDir = ""
		}

		workItems = append(workItems, extractWorkItem{
			entry:   entry,
			relPath: relPath,
			relDir:  relDir,
		})
	}

	return workItems, nil
}

// extractRelativePath resolves one entry key to a safe slash-separated relative path.
func extractRelativePath(key string, sanitize bool, used map[string]struct{}, nextSuffix map[string]int) (string, error) {
	if !sanitize {
		return normalizeExtractEntryPath(key)
	}

	relative := strings.ReplaceAll(key, `\`, `/`)
	if normalized, err := normalizeExtractEntryPath(key); err == nil {
		relative = normalized
	}

	sanitized, err := sanitizeRelativePath(relative)
	if err != nil {
		return "", err
	}

	sanitized, err = makeSanitizedPathUnique(sanitized, used, nextSuffix)
	if err != nil {
		return "", err
	}

	return normalizeExtractEntryPath(sanitized)
}

// prepareExtractDirs creates all unique parent directories needed by work items.
func prepareExtractDirs(dstRootAbs string, workItems []extractWorkItem) error {
	seen := make(map[string]struct{}, len(workItems))
	for _, task := range workItems {
		if task.relDir == "" {
			continue
		}

		dirPath := filepath.Join(dstRootAbs, task.relDir)
		key := strings.ToLower(dirPath)
		if _, exists := seen[key]; exists {
			continue
		}

		seen[key] = struct{}{}
		if err := os.MkdirAll(dirPath, 0o750); err != nil {
			return fmt.Errorf("create output directory %s: %w", dirPath, err)
		}
	}

	return nil
}

// extractPreparedEntry writes one prepared work item to destination root.
func extractPreparedEntry(ctx context.Context, dstRootAbs string, task extractWorkItem, opts ExtractOptions) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	outPath := filepath.Join(dstRootAbs, task.relPath)
	if !withinRoot(dstRootAbs, outPath) {
		return fmt.Errorf("%w: %s", ErrExtractPathOutsideRoot, task.entry.Key())
	}

	data, err := task.entry.Data()
	if err != nil {
		return err
	}

	flags := os.O_WRONLY | os.O_CREATE | os.O_EXCL
	if opts.Overwrite {
		flags = os.O_WRONLY | os.O_CREATE | os.O_TRUNC
	}

	file, err := os.OpenFile(outPath, flags, 0o600)
	if err != nil {
		return fmt.Errorf("open %s: %w", task.entry.Key(), err)
	}

	written, writeErr := file.Write(data)
	closeErr := file.Close()
	if writeErr != nil {
		return fmt.Errorf("write %s: %w", task.entry.Key(), writeErr)
	}

	if closeErr != nil {
		return fmt.Errorf("close %s: %w", task.entry.Key(), closeErr)
	}

	if opts.OnEntryDone != nil {
		opts.OnEntryDone(task.entry.Key(), int64(written), outPath)
	}

	return nil
}

// withinRoot reports whether target stays under root after cleaning.
func withinRoot(root, target string) bool {
	rel, err := filepath.Rel(root, target)
	if err != nil {
		return false
	}

	return rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator))
}

// normalizeExtractEntryPath normalizes entry path and rejects absolute/traversal inputs.
func normalizeExtractEntryPath(entryPath string) (string, error) {
	raw := strings.TrimSpace(entryPath)
	if raw == "" || strings.ContainsRune(raw, 0) {
		return "", ErrInvalidExtractPath
	}

	if strings.HasPrefix(raw, `/`) || strings.HasPrefix(raw, `\`) {
		return "", ErrInvalidExtractPath
	}

	raw = strings.ReplaceAll(raw, `\`, `/`)
	if hasWindowsAbsDrivePrefix(raw) {
		return "", ErrInvalidExtractPath
	}

	parts := strings.Split(raw, `/`)
	cleanParts := make([]string, 0, len(parts))
	for _, part := range parts {
		switch part {
		case "", ".":
			continue
		case "..":
			return "", ErrInvalidExtractPath
		default:
			cleanParts = append(cleanParts, part)
		}
	}

	if len(cleanParts) == 0 {
		return "", ErrInvalidExtractPath
	}

	return strings.Join(cleanParts, `/`), nil
}

// hasWindowsAbsDrivePrefix reports whether path starts with drive-root prefix like C:/.
func hasWindowsAbsDrivePrefix(path string) bool {
	if len(path) < 3 {
		return false
	}

	return isASCIIAlpha(path[0]) && path[1] == ':' && path[2] == '/'
}

// isASCIIAlpha reports whether byte is ASCII latin letter.
func isASCIIAlpha(b byte) bool {
	return (b >= 'a' && b <= 'z') || (b >= 'A' && b <= 'Z')
}
