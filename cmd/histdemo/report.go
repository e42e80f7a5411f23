// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

package main

import (
	"fmt"
	"image"
	"io"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// channelNames labels histogram rows in RGBA order.
var channelNames = [rgbaChannels]string{"R", "G", "B", "A"}

const barWidth = 40

// report is the result for one input.
type report struct {
	name     string
	bounds   image.Rectangle
	fileSize int64
	elapsed  time.Duration
	labels   []string
	hists    [][]uint32
}

// throughput returns the counted pixel bytes per second.
func (r *report) throughput() uint64 {
	secs := r.elapsed.Seconds()
	if secs <= 0 {
		return 0
	}
	bytes := float64(r.bounds.Dx() * r.bounds.Dy() * rgbaChannels)
	return uint64(bytes / secs)
}

type printer struct {
	p    *message.Printer
	w    io.Writer
	bars bool
}

func newPrinter(w io.Writer, bars bool) *printer {
	return &printer{p: message.NewPrinter(language.English), w: w, bars: bars}
}

func (pr *printer) print(r *report) {
	// Dimensions go through fmt so they are not digit-grouped.
	pr.p.Fprintf(pr.w, "%s: %s", r.name, fmt.Sprintf("%dx%d", r.bounds.Dx(), r.bounds.Dy()))
	if r.fileSize > 0 {
		pr.p.Fprintf(pr.w, " (%s encoded)", humanize.Bytes(uint64(r.fileSize)))
	}
	pr.p.Fprintf(pr.w, ", counted in %v (%s/s)\n", r.elapsed.Round(time.Microsecond), humanize.Bytes(r.throughput()))

	for ch, h := range r.hists {
		var peak, total uint64
		for _, c := range h {
			peak = max(peak, uint64(c))
			total += uint64(c)
		}
		pr.p.Fprintf(pr.w, "  %s  total %d\n", channelNames[ch], total)
		for b, c := range h {
			pr.p.Fprintf(pr.w, "    %s %13d", r.labels[b], c)
			if pr.bars {
				pr.p.Fprintf(pr.w, " %s", bar(uint64(c), peak))
			}
			pr.p.Fprintln(pr.w)
		}
	}
}

// bar draws count as a fraction of peak.
func bar(count, peak uint64) string {
	if peak == 0 {
		return ""
	}
	n := int(count * barWidth / peak)
	if n == 0 && count > 0 {
		n = 1
	}
	return strings.Repeat("#", n)
}
