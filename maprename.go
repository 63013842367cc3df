// SPDX-License-Identifier: MIT
// Copyright (c) 2026 WoozyMasta
// Source: github.com/woozymasta/vbsp

package vbsp

import (
	"path/filepath"
	"regexp"
	"strings"
)

// mapFilePatterns match pakfile entries named after the map. Group 1 is the map name.
var mapFilePatterns = []*regexp.Regexp{
	// Materials under materials/maps/<map>/, e.g. cubemaps and patched materials.
	regexp.MustCompile(`^materials/maps/([^/]+)/.*$`),
	// Soundscapes; .vsc is accepted by newer engine branches.
	regexp.MustCompile(`^scripts/soundscapes_([^/]+)\.(?:txt|vsc)$`),
	regexp.MustCompile(`^maps/([^/]+)_level_sounds\.txt$`),
	regexp.MustCompile(`^maps/([^/]+)_particles\.txt`),
}

// MapRename is one pakfile entry renamed by ProcessMapRename.
type MapRename struct {
	OldKey   string            `json:"old_key" yaml:"old_key"`
	NewKey   string            `json:"new_key" yaml:"new_key"`
	Surfaces []RefactorSurface `json:"surfaces,omitempty" yaml:"surfaces,omitempty"`
}

// ProcessMapRename renames pakfile entries tied to the map name and updates
// references to them. newName may be a file name; its extension is dropped.
func (f *File) ProcessMapRename(oldName, newName string, opts RefactorOptions) ([]MapRename, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	log := opts.Logger
	if log == nil {
		log = f.log()
	}

	oldName = strings.TrimSuffix(filepath.Base(oldName), filepath.Ext(oldName))
	newName = strings.TrimSuffix(filepath.Base(newName), filepath.Ext(newName))
	if oldName == "" || newName == "" || strings.EqualFold(oldName, newName) {
		return nil, nil
	}

	pak := f.Pakfile()
	var renames []MapRename

	for _, entry := range pak.Entries() {
		oldKey := entry.Key()
		for _, re := range mapFilePatterns {
			m := re.FindStringSubmatchIndex(oldKey)
			if m == nil {
				continue
			}

			mapName := oldKey[m[2]:m[3]]
			if !strings.EqualFold(mapName, oldName) {
				continue
			}

			newKey := oldKey[:m[2]] + newName + oldKey[m[3]:]
			if err := pak.Rename(oldKey, newKey); err != nil {
				return renames, err
			}
			log.Info("renamed pakfile entry", "old", oldKey, "new", newKey)

			surfaces, err := f.updatePathReferences(oldKey, newKey, opts)
			if err != nil {
				return renames, err
			}

			renames = append(renames, MapRename{OldKey: oldKey, NewKey: newKey, Surfaces: surfaces})
			break
		}
	}

	return renames, nil
}
