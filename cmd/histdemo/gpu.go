//go:build !nogpu

// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

package main

// The GPU accelerator takes 8-bit launches when a device is available.
import _ "github.com/gogpu/blockhist/gpu"
