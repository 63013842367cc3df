// SPDX-License-Identifier: MIT
// Copyright (c) 2026 WoozyMasta
// Source: github.com/woozymasta/vbsp

package vbsp

import (
	"path"
	"strings"
	"unicode"
)

// replacePathReferences replaces standalone occurrences of op with np in text.
// When extensions is set and opNoPrefix ends with one of them, references
// without that extension are replaced too.
func replacePathReferences(text []rune, op, np, opNoPrefix string, extensions []string) ([]rune, int) {
	opr, npr := []rune(op), []rune(np)
	changes := 0

	for base := 0; base < len(text); {
		idx, mop, mnp := findPathMatch(text, base, opr, npr, opNoPrefix, extensions)
		if idx < 0 {
			break
		}

		if !isStandaloneMatch(text, idx, len(mop)) {
			base = idx + 1
			continue
		}

		out := make([]rune, 0, len(text)-len(mop)+len(mnp))
		out = append(out, text[:idx]...)
		out = append(out, mnp...)
		out = append(out, text[idx+len(mop):]...)
		text = out

		changes++
		base = idx + len(mnp)
	}

	return text, changes
}

// findPathMatch returns the earliest occurrence of the full path or its
// extension-less form; the full path wins when both start at the same index.
func findPathMatch(text []rune, start int, op, np []rune, opNoPrefix string, extensions []string) (int, []rune, []rune) {
	idx, mop, mnp := indexSlashAgnostic(text, start, op), op, np

	ext := path.Ext(opNoPrefix)
	for _, candidate := range extensions {
		if !strings.EqualFold(ext, candidate) {
			continue
		}

		n := len([]rune(candidate))
		if len(op) < n || len(np) < n {
			continue
		}

		bareOp, bareNp := op[:len(op)-n], np[:len(np)-n]
		if bare := indexSlashAgnostic(text, start, bareOp); bare >= 0 && (idx < 0 || bare < idx) {
			idx, mop, mnp = bare, bareOp, bareNp
		}
	}

	if idx < 0 {
		return -1, nil, nil
	}

	return idx, mop, mnp
}

// indexSlashAgnostic finds pattern in text from start, case-insensitive,
// where any separator in pattern matches either "/" or "\".
func indexSlashAgnostic(text []rune, start int, pattern []rune) int {
	if start < 0 {
		start = 0
	}

	if len(pattern) == 0 {
		return -1
	}

outer:
	for i := start; i <= len(text)-len(pattern); i++ {
		for j, pc := range pattern {
			tc := text[i+j]
			if isPathSeparator(pc) {
				if !isPathSeparator(tc) {
					continue outer
				}
				continue
			}

			if tc != pc && unicode.ToUpper(tc) != unicode.ToUpper(pc) {
				continue outer
			}
		}

		return i
	}

	return -1
}

// isStandaloneMatch checks characters around a match so foo/bar does not
// match inside foo/barbaz or baz/foo/bar.
// A quoted match needs a closing quote; an unquoted one must be delimited
// by whitespace or braces and may be followed by "/" or end of text.
func isStandaloneMatch(text []rune, idx, n int) bool {
	end := idx + n
	atEnd := end >= len(text)

	if idx > 0 && text[idx-1] == '"' {
		return !atEnd && text[end] == '"'
	}

	if idx > 0 && !isKVSpace(text[idx-1]) && !isBrace(text[idx-1]) {
		return false
	}

	if atEnd {
		return true
	}

	next := text[end]
	return isKVSpace(next) || next == '/' || isBrace(next)
}

// isKVSpace matches C isspace.
func isKVSpace(r rune) bool {
	switch r {
	case ' ', '\t', '\r', '\n', '\v', '\f':
		return true
	default:
		return false
	}
}

func isBrace(r rune) bool { return r == '{' || r == '}' }
