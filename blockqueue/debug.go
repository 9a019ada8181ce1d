// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

//go:build lockfreedebug

package blockqueue

// debugSentinelsEnabled reserves slot 0 of every block as tagStartOfList
// and the last slot as tagSentinel when built with -tags lockfreedebug. It
// costs two slots per block; production builds omit it.
const debugSentinelsEnabled = true
