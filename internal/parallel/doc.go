// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

// Package parallel provides the execution primitives blockhist groups run on.
//
// The model follows a GPU launch:
//
//   - GroupPool hosts execution groups on a fixed set of workers, the way
//     multiprocessors host resident thread blocks;
//   - Barrier is the full-group barrier lanes meet at;
//   - Broadcast publishes one value from lane 0 to the rest of the group
//     through group-local scratch words;
//   - WorkQueue is the shared fetch-and-add counter groups claim tiles from.
//
// Nothing here knows about histograms; internal/engine composes these pieces.
package parallel
