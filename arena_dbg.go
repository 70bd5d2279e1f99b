// Copyright 2021 Intuitive Labs GmbH. All rights reserved.
//
// Use of this source code is governed by a BSD-style license
// that can be found in the LICENSE.txt file in the root of the source
// tree.

package t7

import (
	"github.com/intuitivelabs/slog"
)

// dumpStatus will write current status information in the log
func (a *Arena) dumpStatus() {
	const lev = slog.LDBG
	const prefix = "arena_status "

	if !Log.L(lev) {
		return
	}
	Log.LLog(lev, 0, prefix, "(%p):\n", a)
	if a == nil {
		return
	}
	Log.LLog(lev, 0, prefix, "heap size= %d, owned= %v, mapped= %v\n",
		a.size, a.owned, a.mapped)
	Log.LLog(lev, 0, prefix, "used= %d, used+overhead=%d, free=%d\n",
		a.used.Used, a.used.RealUsed, uint64(a.size)-a.used.RealUsed)
	Log.LLog(lev, 0, prefix, "max used (+overhead)= %d\n",
		a.used.MaxRealUsed)
	Log.LLog(lev, 0, prefix, "search start= %d\n", a.start)
	if a.options&ArenaDumpStatsShort != 0 || a.buf == nil {
		return
	}
	Log.LLog(lev, 0, prefix, "dumping all nodes:\n")
	i := 0
	for off := 0; off < a.size; i++ {
		nd := a.load(off)
		state := "free"
		if nd.allocated {
			state = "allocated"
		}
		Log.LLog(lev, 0, prefix, "   %3d.    offset=%d size=%d %s\n",
			i, off, nd.size, state)
		if nd.size < wordSize {
			BUG("arena_status: node %d has invalid size %d\n", off, nd.size)
			break
		}
		off += nd.size
	}
	Log.LLog(lev, 0, prefix, "-----------------------------\n")
}

// DumpStatus writes the arena state in the log at debug level.
func (a *Arena) DumpStatus() {
	EnterCritical()
	defer LeaveCritical()
	a.dumpStatus()
}
