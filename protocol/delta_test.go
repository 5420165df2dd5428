package protocol

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func emittedDeltas(snapshots []string) []string {
	var tracker deltaTracker
	var deltas []string
	for _, snap := range snapshots {
		if delta := tracker.next(snap); delta != "" {
			deltas = append(deltas, delta)
		}
	}
	return deltas
}

func TestDeltaTracker_CumulativeGrowth(t *testing.T) {
	deltas := emittedDeltas([]string{"", "Hel", "Hello", "Hello"})
	assert.Equal(t, []string{"Hel", "lo"}, deltas)
}

func TestDeltaTracker_RegressionSuppressed(t *testing.T) {
	deltas := emittedDeltas([]string{"Hello world", "Hello"})
	assert.Equal(t, []string{"Hello world"}, deltas)
}

func TestDeltaTracker_DivergentSnapshotIsFullReplacement(t *testing.T) {
	var tracker deltaTracker

	assert.Equal(t, "abc", tracker.next("abc"))
	assert.Equal(t, "xyz", tracker.next("xyz"))
	assert.Equal(t, "abcxyz", tracker.total())
}

func TestDeltaTracker_EmptySnapshotsIgnored(t *testing.T) {
	deltas := emittedDeltas([]string{"", "", ""})
	assert.Empty(t, deltas)
}

func TestDeltaTracker_IdenticalSnapshotNoEvent(t *testing.T) {
	var tracker deltaTracker
	tracker.next("same")
	assert.Equal(t, "", tracker.next("same"))
	assert.Equal(t, "same", tracker.total())
}
