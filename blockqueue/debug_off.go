// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

//go:build !lockfreedebug

package blockqueue

// debugSentinelsEnabled is false in production builds: every slot of a
// block is usable.
const debugSentinelsEnabled = false
