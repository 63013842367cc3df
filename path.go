// SPDX-License-Identifier: MIT
// Copyright (c) 2026 WoozyMasta
// Source: github.com/woozymasta/vbsp

package vbsp

import (
	"fmt"
	"path"
	"strings"
)

// NormalizePath returns the form Source uses to look up a pakfile entry or a
// material/model reference: forward slashes, no leading slash, no "." or ".."
// segments and no trailing slash. Case is kept; lookups fold it separately.
func NormalizePath(raw string) string {
	// Rooting before Clean drops ".." that would climb out of the game dir.
	clean := path.Clean("/" + slashPattern(raw))
	return strings.Trim(clean, "/")
}

// slashPattern converts a map or rule path to forward slashes and strips a
// leading "./". Anchoring "/" and trailing "/" survive for pathrules.
func slashPattern(p string) string {
	p = strings.ReplaceAll(strings.TrimSpace(p), `\`, "/")
	return strings.TrimPrefix(p, "./")
}

// normalizePakfileKey returns the zip entry name stored in the pakfile lump.
func normalizePakfileKey(raw string) (string, error) {
	key := NormalizePath(raw)
	if key == "" {
		return "", fmt.Errorf("%w: %q", ErrInvalidEntryPath, raw)
	}

	return key, nil
}

// hasPathSeparator reports whether p contains "/" or "\".
func hasPathSeparator(p string) bool {
	return strings.ContainsAny(p, `/\`)
}

// samePath compares two asset paths ignoring separator style and case.
func samePath(a, b string) bool {
	return strings.EqualFold(NormalizePath(a), NormalizePath(b))
}
