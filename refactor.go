// SPDX-License-Identifier: MIT
// Copyright (c) 2026 WoozyMasta
// Source: github.com/woozymasta/vbsp

package vbsp

import (
	"log/slog"
	"path"
	"strings"
)

// rootDirectories may be omitted from the front of an asset reference;
// the engine resolves "foo/bar.wav" in a sound context as "sound/foo/bar.wav".
var rootDirectories = []string{
	"materials",
	"scripts",
	"sound",
	"particles",
	"cfg",
	"models",
	"resource",
}

// ignorableExtensions maps a pakfile text type to extensions its references may omit.
// A .vmt "$basetexture" of "foo/bar" points at materials/foo/bar.vtf.
var ignorableExtensions = map[string][]string{
	".vmt": {".vtf", ".vmt"},
}

// refactorPaths holds old and new paths split around an optional root directory.
type refactorPaths struct {
	oldPath string
	newPath string
	// root is the matched root directory of oldPath, empty when none.
	root string
	// oldPrefix is the first segment of oldPath.
	oldPrefix string
	// oldNoPrefix is oldPath without its first segment, "/" separated.
	oldNoPrefix string
	// newNoPrefix is newPath without its first segment.
	newNoPrefix string
}

// splitRefactorPaths prepares paths; ok is false when either path has no separator.
func splitRefactorPaths(oldPath, newPath string) (refactorPaths, bool) {
	if !hasPathSeparator(oldPath) || !hasPathSeparator(newPath) {
		return refactorPaths{}, false
	}

	segments := strings.FieldsFunc(oldPath, isPathSeparator)
	if len(segments) < 2 {
		return refactorPaths{}, false
	}

	p := refactorPaths{
		oldPath:     oldPath,
		newPath:     newPath,
		oldPrefix:   segments[0],
		oldNoPrefix: strings.Join(segments[1:], "/"),
	}

	if i := strings.IndexAny(newPath, `/\`); i >= 0 {
		p.newNoPrefix = newPath[i+1:]
	}

	for _, dir := range rootDirectories {
		if strings.EqualFold(dir, p.oldPrefix) {
			p.root = dir
			break
		}
	}

	return p, true
}

// crossesRoot reports whether newPath leaves the root directory of oldPath.
func (p refactorPaths) crossesRoot() bool {
	if p.root == "" {
		return false
	}

	if len(p.newPath) <= len(p.root) || !isPathSeparator(rune(p.newPath[len(p.root)])) {
		return true
	}

	return !strings.EqualFold(p.newPath[:len(p.root)], p.root)
}

func isPathSeparator(r rune) bool { return r == '/' || r == '\\' }

// UpdatePathReferences rewrites every reference to oldPath into newPath
// across entities, pakfile text entries, texture names and static prop
// models. It returns surfaces that were actually modified, in evaluation order.
func (f *File) UpdatePathReferences(oldPath, newPath string, opts RefactorOptions) ([]RefactorSurface, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	return f.updatePathReferences(oldPath, newPath, opts)
}

func (f *File) updatePathReferences(oldPath, newPath string, opts RefactorOptions) ([]RefactorSurface, error) {
	opts.applyDefaults()

	log := opts.Logger
	if log == nil {
		log = f.log()
	}

	paths, ok := splitRefactorPaths(oldPath, newPath)
	if !ok {
		log.Debug("path without separator, references not updated", "old", oldPath, "new", newPath)
		return nil, nil
	}

	if paths.crossesRoot() {
		log.Warn("refusing to move references between root directories", "old", oldPath, "new", newPath)
		return nil, nil
	}

	var updated []RefactorSurface

	if opts.wants(SurfaceEntity) && f.updateEntityReferences(paths, log) {
		updated = append(updated, SurfaceEntity)
	}

	if opts.wants(SurfacePakfile) {
		matcher, err := newPathMatcher(opts.PakfileRules, opts.PakfileMatcherOptions)
		if err != nil {
			return nil, err
		}

		changed, err := f.updatePakfileReferences(paths, matcher, log)
		if err != nil {
			return updated, err
		}
		if changed {
			updated = append(updated, SurfacePakfile)
		}
	}

	if opts.wants(SurfaceTexData) && f.updateTexDataReferences(paths, log) {
		updated = append(updated, SurfaceTexData)
	}

	if opts.wants(SurfaceStaticProp) && f.updateStaticPropReferences(paths, log) {
		updated = append(updated, SurfaceStaticProp)
	}

	return updated, nil
}

// updateEntityReferences replaces plain string values equal to the old path,
// with or without its root directory.
func (f *File) updateEntityReferences(p refactorPaths, log *slog.Logger) bool {
	updated := false

	for _, ent := range f.Entities().Entities {
		for i := range ent.Properties {
			prop := &ent.Properties[i]
			if prop.IsIO() || prop.Value == "" {
				continue
			}

			value := strings.ReplaceAll(prop.Value, `\`, "/")
			var replacement string
			switch {
			case strings.EqualFold(value, strings.ReplaceAll(p.oldPath, `\`, "/")):
				replacement = p.newPath
			case p.root != "" && strings.EqualFold(value, p.oldNoPrefix):
				replacement = p.newNoPrefix
			default:
				continue
			}

			log.Info("replaced entity property",
				"entity", ent.Name(), "key", prop.Key, "old", prop.Value, "new", replacement)
			prop.Value = replacement
			updated = true
		}
	}

	return updated
}

// updatePakfileReferences rewrites matching text entries in place.
func (f *File) updatePakfileReferences(p refactorPaths, matcher *pathMatcher, log *slog.Logger) (bool, error) {
	op, np := p.oldPath, p.newPath
	if p.root != "" {
		op, np = p.oldNoPrefix, p.newNoPrefix
	}

	updated := false
	for _, entry := range f.Pakfile().Entries() {
		if !matcher.Match(entry.Key()) {
			continue
		}

		data, err := entry.Data()
		if err != nil {
			return updated, err
		}

		text := []rune(latin1Decode(data))
		if strings.TrimSpace(string(text)) == "" {
			continue
		}

		extensions := ignorableExtensions[strings.ToLower(path.Ext(entry.Key()))]
		out, changes := replacePathReferences(text, op, np, p.oldNoPrefix, extensions)
		if changes == 0 {
			continue
		}

		encoded, err := latin1Encode([]byte(string(out)))
		if err != nil {
			return updated, err
		}

		entry.SetData(encoded)
		updated = true
		log.Info("replaced pakfile references",
			"entry", entry.Key(), "count", changes, "old", p.oldPath, "new", p.newPath)
	}

	return updated, nil
}

// updateTexDataReferences renames materials: "materials/foo/bar.vmt" is stored as "foo/bar".
func (f *File) updateTexDataReferences(p refactorPaths, log *slog.Logger) bool {
	if !strings.EqualFold(path.Ext(p.oldPath), ".vmt") || !strings.EqualFold(p.oldPrefix, "materials") {
		return false
	}

	op := p.oldNoPrefix[:len(p.oldNoPrefix)-len(".vmt")]
	np := p.newNoPrefix
	if strings.EqualFold(path.Ext(np), ".vmt") {
		np = np[:len(np)-len(".vmt")]
	}

	count := 0
	records := f.TexData().Records
	for i := range records {
		if strings.EqualFold(strings.ReplaceAll(records[i].Name, `\`, "/"), op) {
			records[i].Name = np
			count++
		}
	}

	if count > 0 {
		log.Info("replaced texdata names", "count", count, "old", p.oldPath, "new", p.newPath)
	}

	return count > 0
}

// updateStaticPropReferences replaces the first matching static prop model path.
func (f *File) updateStaticPropReferences(p refactorPaths, log *slog.Logger) bool {
	if !strings.EqualFold(path.Ext(p.oldPath), ".mdl") || !strings.EqualFold(p.oldPrefix, "models") {
		return false
	}

	props, ok := f.GameLump().StaticProps()
	if !ok {
		return false
	}

	for i, name := range props.Names {
		if samePath(name, p.oldPath) {
			props.Names[i] = p.newPath
			log.Info("replaced static prop model", "old", name, "new", p.newPath)
			return true
		}
	}

	return false
}
