package protocol

import "strings"

// deltaTracker turns successive cumulative text snapshots into the
// incremental deltas a client has not yet seen. Rules, in priority order:
//
//  1. An empty snapshot yields no delta.
//  2. With no prior text, the whole snapshot is the delta.
//  3. If the snapshot extends the prior text, the delta is the new suffix.
//  4. If the snapshot regressed (prior text starts with it), no delta.
//  5. Divergent snapshots are treated as a full replacement chunk: the whole
//     snapshot is the delta and is appended to the running buffer.
type deltaTracker struct {
	buffer string
}

// next returns the delta for one cumulative snapshot; an empty return means
// no event should be emitted.
func (d *deltaTracker) next(cumulative string) string {
	switch {
	case cumulative == "":
		return ""
	case d.buffer == "":
		d.buffer = cumulative
		return cumulative
	case strings.HasPrefix(cumulative, d.buffer):
		delta := cumulative[len(d.buffer):]
		if delta != "" {
			d.buffer = cumulative
		}
		return delta
	case strings.HasPrefix(d.buffer, cumulative):
		return ""
	default:
		d.buffer += cumulative
		return cumulative
	}
}

// total returns everything streamed so far.
func (d *deltaTracker) total() string { return d.buffer }
