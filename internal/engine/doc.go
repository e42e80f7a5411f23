// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

// Package engine is the block-level histogram core.
//
// A launch runs a grid of execution groups. Every group is a fixed set of
// lanes that meet at group-wide barriers and share a small group-local
// Arena. Per launch and per lane the entry sequence is:
//
//	InitBinCounters(lane)            zero privatized counters, barrier
//	ConsumeTiles(lane, row, queue)   once per assigned row
//	StoreOutput(lane)                barrier, merge into the output
//
// The privatized counters of a group live either in its Arena (local
// placement) or in a host-owned buffer partitioned by group ordinal (global
// placement). The merged output does not depend on that choice, on the
// scheduling strategy, or on the accumulation strategy.
//
// The engine does no validation. The host layer (package blockhist) checks
// every Config before calling Launch; a violated contract panics inside a
// lane and Launch reports the whole launch as failed.
package engine
