// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

package blockhist

import (
	"errors"

	"github.com/gogpu/blockhist/internal/engine"
)

var (
	// ErrInvalidConfig reports a launch that cannot run as configured:
	// mismatched per-channel arrays, non-positive counts, channel counts out
	// of range, or a region that does not fit the input.
	ErrInvalidConfig = errors.New("blockhist: invalid configuration")

	// ErrLocalMemoryExceeded reports privatized counters that do not fit the
	// group arena under local or blended placement.
	ErrLocalMemoryExceeded = errors.New("blockhist: privatized counters exceed local memory")

	// ErrLaunchFailed reports a launch aborted by a failing lane, typically a
	// decode operator returning a bin out of range. The output is discarded.
	ErrLaunchFailed = engine.ErrLaunchFailed
)
