// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

//go:build race

package racedetect

// Enabled is true when the race detector is active.
//
// The three containers in this module synchronize non-atomic fields
// (chain payloads, slot values) purely through the happens-before edges
// established by atomic CAS on separate control words. Go's race detector
// only tracks explicit synchronization primitives and atomic operations on
// the exact same address, so it reports false positives on these patterns.
// Stress tests that would trip such positives check Enabled and skip
// themselves when it is true.
const Enabled = true
