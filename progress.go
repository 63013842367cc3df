// SPDX-License-Identifier: MIT
// Copyright (c) 2026 WoozyMasta
// Source: github.com/woozymasta/vbsp

package vbsp

// ProgressEvent represents a progress update during load or save.
type ProgressEvent struct {
	// Message is a short human readable description of the step.
	Message string

	// Stage identifies the current phase of the operation.
	Stage ProgressStage

	// Lump is the lump being processed, if applicable.
	Lump LumpType

	// Percent is overall completion in range [0, 100].
	Percent float64
}

// ProgressStage identifies the current phase of an operation.
type ProgressStage uint8

// Progress stages for load and save.
const (
	// StageHeader indicates the directory is being read or written.
	StageHeader ProgressStage = iota

	// StageLumps indicates lumps are being decoded or encoded.
	StageLumps

	// StagePakfile indicates the pakfile archive is being read or rebuilt.
	StagePakfile

	// StageDone indicates the operation finished.
	StageDone
)

// String returns a human-readable name for the stage.
func (s ProgressStage) String() string {
	switch s {
	case StageHeader:
		return "header"
	case StageLumps:
		return "lumps"
	case StagePakfile:
		return "pakfile"
	case StageDone:
		return "done"
	default:
		return "unknown"
	}
}

// ProgressFunc receives progress updates during operations.
// Implementations must be safe for concurrent calls.
type ProgressFunc func(ProgressEvent)

// progressShares splits 100% between header, lumps and pakfile stages.
type progressShares struct {
	header  float64
	lumps   float64
	pakfile float64
}

var (
	readShares  = progressShares{header: 5, lumps: 50, pakfile: 45}
	writeShares = progressShares{header: 5, lumps: 25, pakfile: 70}
)

// progressTracker accumulates completion and forwards events to the callback.
type progressTracker struct {
	fn     ProgressFunc
	shares progressShares
	done   float64
}

// newProgressTracker returns tracker; nil fn produces a silent tracker.
func newProgressTracker(fn ProgressFunc, shares progressShares) *progressTracker {
	return &progressTracker{fn: fn, shares: shares}
}

// advance adds delta percent and reports the event.
func (p *progressTracker) advance(stage ProgressStage, lump LumpType, delta float64, msg string) {
	if p == nil {
		return
	}

	p.done += delta
	if p.done > 100 {
		p.done = 100
	}

	if p.fn == nil {
		return
	}

	p.fn(ProgressEvent{
		Stage:   stage,
		Lump:    lump,
		Percent: p.done,
		Message: msg,
	})
}

// finish reports completion.
func (p *progressTracker) finish(msg string) {
	if p == nil {
		return
	}

	p.advance(StageDone, -1, 100-p.done, msg)
}
