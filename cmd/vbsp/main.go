// SPDX-License-Identifier: MIT
// Copyright (c) 2026 WoozyMasta
// Source: github.com/woozymasta/vbsp

// Command vbsp inspects and edits Source engine BSP maps.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"sync/atomic"

	"github.com/woozymasta/vbsp"
)

// pairFlag collects repeatable old=new arguments.
type pairFlag [][2]string

func (p *pairFlag) String() string {
	parts := make([]string, 0, len(*p))
	for _, kv := range *p {
		parts = append(parts, kv[0]+"="+kv[1])
	}

	return strings.Join(parts, ",")
}

func (p *pairFlag) Set(value string) error {
	oldValue, newValue, ok := strings.Cut(value, "=")
	if !ok || oldValue == "" || newValue == "" {
		return fmt.Errorf("expected old=new, got %q", value)
	}

	*p = append(*p, [2]string{oldValue, newValue})
	return nil
}

type config struct {
	input      string
	output     string
	jsonFile   string
	extractDir string
	renames    pairFlag
	mapRenames pairFlag
	workers    int
	compress   bool
	decompress bool
	noBackup   bool
	jsonStdout bool
	verbose    bool
}

func main() {
	cfg, err := parseFlags()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		flag.Usage()
		os.Exit(2)
	}

	level := slog.LevelInfo
	if cfg.verbose {
		level = slog.LevelDebug
	}
	log := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := run(ctx, cfg, log); err != nil {
		log.Error("vbsp failed", "error", err)
		os.Exit(1)
	}
}

func parseFlags() (config, error) {
	var cfg config

	flag.StringVar(&cfg.output, "o", "", "write result to this path instead of the input file")
	flag.BoolVar(&cfg.compress, "c", false, "compress lumps on save")
	flag.BoolVar(&cfg.decompress, "C", false, "decompress lumps on save")
	flag.BoolVar(&cfg.noBackup, "B", false, "do not create a backup when overwriting the input")
	flag.BoolVar(&cfg.jsonStdout, "j", false, "print JSON summary to stdout")
	flag.StringVar(&cfg.jsonFile, "J", "", "write JSON summary to file")
	flag.Var(&cfg.renames, "rename", "rename path references old=new (repeatable)")
	flag.Var(&cfg.mapRenames, "map-rename", "rename map old=new with its pakfile entries (repeatable)")
	flag.StringVar(&cfg.extractDir, "extract", "", "extract pakfile entries to directory")
	flag.IntVar(&cfg.workers, "w", 0, "worker count for save and extract (0 means all CPUs)")
	flag.BoolVar(&cfg.verbose, "v", false, "verbose logging")

	flag.Usage = func() {
		fmt.Fprintf(flag.CommandLine.Output(), "usage: %s [options] map.bsp\n\noptions:\n", os.Args[0])
		flag.PrintDefaults()
	}
	flag.Parse()

	if flag.NArg() != 1 {
		return cfg, errors.New("exactly one input file is required")
	}

	if cfg.compress && cfg.decompress {
		return cfg, errors.New("-c and -C are mutually exclusive")
	}

	cfg.input = flag.Arg(0)
	return cfg, nil
}

func run(ctx context.Context, cfg config, log *slog.Logger) error {
	f, err := vbsp.Open(ctx, cfg.input, vbsp.LoadOptions{
		Logger: log,
		OnProgress: func(ev vbsp.ProgressEvent) {
			log.Debug("load", "stage", ev.Stage.String(), "percent", fmt.Sprintf("%.0f", ev.Percent))
		},
	})
	if err != nil {
		return err
	}
	defer func() { _ = f.Close() }()

	modified := false
	refactorOpts := vbsp.RefactorOptions{Logger: log}

	for _, mr := range cfg.mapRenames {
		renames, err := f.ProcessMapRename(mr[0], mr[1], refactorOpts)
		if err != nil {
			return fmt.Errorf("map rename %s: %w", mr[0], err)
		}

		log.Info("map renamed", "old", mr[0], "new", mr[1], "entries", len(renames))
		modified = true
	}

	for _, r := range cfg.renames {
		surfaces, err := f.UpdatePathReferences(r[0], r[1], refactorOpts)
		if err != nil {
			return fmt.Errorf("rename %s: %w", r[0], err)
		}

		if len(surfaces) == 0 {
			log.Warn("no references found", "path", r[0])
			continue
		}

		modified = true
	}

	if cfg.extractDir != "" {
		var count atomic.Int64
		err := f.ExtractPakfile(ctx, cfg.extractDir, vbsp.ExtractOptions{
			MaxWorkers: cfg.workers,
			Overwrite:  true,
			OnEntryDone: func(key string, written int64, _ string) {
				count.Add(1)
				log.Debug("extracted", "entry", key, "bytes", written)
			},
		})
		if err != nil {
			return fmt.Errorf("extract: %w", err)
		}

		log.Info("pakfile extracted", "dir", cfg.extractDir, "entries", count.Load())
	}

	if cfg.compress || cfg.decompress || cfg.output != "" {
		modified = true
	}

	if modified {
		if err := save(ctx, f, cfg, log); err != nil {
			return err
		}
	}

	if cfg.jsonStdout || cfg.jsonFile != "" {
		return writeSummary(f, cfg)
	}

	return nil
}

func save(ctx context.Context, f *vbsp.File, cfg config, log *slog.Logger) error {
	opts := vbsp.SaveFileOptions{
		SaveOptions: vbsp.SaveOptions{
			Logger:     log,
			MaxWorkers: cfg.workers,
		},
		Backup: vbsp.BackupTimestamp,
	}

	switch {
	case cfg.compress:
		opts.SaveOptions.Compression = vbsp.CompressionCompressed
	case cfg.decompress:
		opts.SaveOptions.Compression = vbsp.CompressionUncompressed
	}

	target := cfg.input
	if cfg.output != "" {
		target = cfg.output
	}

	if cfg.noBackup || target != cfg.input {
		opts.Backup = vbsp.BackupNone
	}

	if err := f.SaveFile(ctx, target, opts); err != nil {
		return fmt.Errorf("save %s: %w", target, err)
	}

	return nil
}

func writeSummary(f *vbsp.File, cfg config) error {
	summary, err := f.Summary(true)
	if err != nil {
		return err
	}

	if cfg.jsonStdout {
		if err := summary.WriteJSON(os.Stdout); err != nil {
			return err
		}
	}

	if cfg.jsonFile == "" {
		return nil
	}

	out, err := os.Create(cfg.jsonFile)
	if err != nil {
		return fmt.Errorf("create summary: %w", err)
	}

	if err := summary.WriteJSON(out); err != nil {
		_ = out.Close()
		return err
	}

	return out.Close()
}
