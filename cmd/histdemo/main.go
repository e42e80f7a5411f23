// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

// Command histdemo prints per-channel histograms of images.
//
// Every input is decoded to packed RGBA and histogrammed with blockhist;
// several inputs are processed concurrently. Without inputs a synthetic
// gradient is used.
//
//	histdemo -bins 8 photo.jpg scan.tiff
//	histdemo -edges 0,32,96,160,224,255 -channels rgba -roi 0,0,256,256 image.png
//	histdemo -synthetic 4096x4096 -scheduling steal -placement global -v
package main

import (
	"context"
	"flag"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/gogpu/blockhist"
)

type config struct {
	bins      int
	edges     []uint8
	channels  int
	roi       string
	scale     float64
	synthetic string
	jobs      int
	bars      bool
	opts      []blockhist.Option
}

func main() {
	var (
		bins       = flag.Int("bins", 16, "even bins per channel over the full 8-bit range")
		edges      = flag.String("edges", "", "comma-separated ascending bin edges (overrides -bins)")
		channels   = flag.String("channels", "rgb", "channels to histogram: gray, rgb or rgba")
		roi        = flag.String("roi", "", "region of interest x,y,w,h in image coordinates")
		scale      = flag.Float64("scale", 1, "resample inputs by this factor before counting")
		synthetic  = flag.String("synthetic", "1024x1024", "size of the synthetic gradient used without inputs")
		jobs       = flag.Int("jobs", 2, "inputs histogrammed concurrently")
		bars       = flag.Bool("bars", true, "draw a bar per bin")
		lanes      = flag.Int("lanes", 0, "lanes per group (0 = default)")
		ppl        = flag.Int("ppl", 0, "pixels per lane (0 = default)")
		placement  = flag.String("placement", "", "counter placement: local, global or blended")
		scheduling = flag.String("scheduling", "", "tile scheduling: even or steal")
		accum      = flag.String("accumulation", "", "accumulation: direct or rle")
		workers    = flag.Int("workers", 0, "resident groups (0 = GOMAXPROCS)")
		cpuOnly    = flag.Bool("cpu", false, "never use the GPU accelerator")
		verbose    = flag.Bool("v", false, "log launches to stderr")
	)
	flag.Parse()

	if *verbose {
		blockhist.SetLogger(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelDebug})))
	}

	cfg := config{
		bins:      *bins,
		roi:       *roi,
		scale:     *scale,
		synthetic: *synthetic,
		jobs:      *jobs,
		bars:      *bars,
	}
	var err error
	if cfg.channels, err = parseChannels(*channels); err != nil {
		log.Fatal(err)
	}
	if *edges != "" {
		if cfg.edges, err = parseEdges(*edges); err != nil {
			log.Fatal(err)
		}
	}
	if cfg.opts, err = policyOptions(*lanes, *ppl, *placement, *scheduling, *accum, *workers, *cpuOnly); err != nil {
		log.Fatal(err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	reports, err := run(ctx, cfg, flag.Args())
	if err != nil {
		log.Fatal(err)
	}
	p := newPrinter(os.Stdout, cfg.bars)
	for _, r := range reports {
		p.print(r)
	}
}

// run histograms every input, at most cfg.jobs at a time, and returns the
// reports in input order.
func run(ctx context.Context, cfg config, inputs []string) ([]*report, error) {
	if len(inputs) == 0 {
		inputs = []string{syntheticPrefix + cfg.synthetic}
	}
	reports := make([]*report, len(inputs))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(max(cfg.jobs, 1))
	for i, name := range inputs {
		g.Go(func() error {
			img, size, err := loadRGBA(name, cfg.scale)
			if err != nil {
				return err
			}
			view, err := cropRGBA(img, cfg.roi)
			if err != nil {
				return err
			}
			start := time.Now()
			hists, err := histogram(ctx, view, cfg)
			if err != nil {
				return err
			}
			reports[i] = &report{
				name:     name,
				bounds:   view.Rect,
				fileSize: size,
				elapsed:  time.Since(start),
				labels:   binLabels(cfg),
				hists:    hists,
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return reports, nil
}
