package ledger

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestResolve(t *testing.T) {
	tests := []struct {
		name    string
		wasUp   bool
		wasDown bool
		action  Action
		want    Transition
	}{
		{
			name:   "fresh upvote",
			action: Upvote,
			want:   Transition{AddedUpvote: true},
		},
		{
			name:   "fresh downvote",
			action: Downvote,
			want:   Transition{AddedDownvote: true},
		},
		{
			name:   "upvote again retracts",
			wasUp:  true,
			action: Upvote,
			want:   Transition{RemovedUpvote: true},
		},
		{
			name:    "downvote again retracts",
			wasDown: true,
			action:  Downvote,
			want:    Transition{RemovedDownvote: true},
		},
		{
			name:    "downvote to upvote flips",
			wasDown: true,
			action:  Upvote,
			want:    Transition{AddedUpvote: true, RemovedDownvote: true},
		},
		{
			name:   "upvote to downvote flips",
			wasUp:  true,
			action: Downvote,
			want:   Transition{AddedDownvote: true, RemovedUpvote: true},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Resolve(tt.wasUp, tt.wasDown, tt.action)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestResolveNeverFiresBothEdgesOfOneSet(t *testing.T) {
	for _, wasUp := range []bool{false, true} {
		for _, wasDown := range []bool{false, true} {
			if wasUp && wasDown {
				continue // not reachable, single row per voter
			}
			for _, action := range []Action{Upvote, Downvote} {
				tr := Resolve(wasUp, wasDown, action)
				assert.False(t, tr.AddedUpvote && tr.RemovedUpvote,
					"upvote edge fired both ways for wasUp=%v wasDown=%v action=%v", wasUp, wasDown, action)
				assert.False(t, tr.AddedDownvote && tr.RemovedDownvote,
					"downvote edge fired both ways for wasUp=%v wasDown=%v action=%v", wasUp, wasDown, action)
				assert.False(t, tr.AddedUpvote && tr.AddedDownvote,
					"both sets gained a member for wasUp=%v wasDown=%v action=%v", wasUp, wasDown, action)
			}
		}
	}
}

func TestDeltaWeights(t *testing.T) {
	tests := []struct {
		name       string
		transition Transition
		voter      int
		author     int
	}{
		{"add upvote", Transition{AddedUpvote: true}, 1, 10},
		{"remove upvote", Transition{RemovedUpvote: true}, -1, -10},
		{"add downvote", Transition{AddedDownvote: true}, -2, -10},
		{"remove downvote", Transition{RemovedDownvote: true}, 2, 10},
		{"flip down to up", Transition{AddedUpvote: true, RemovedDownvote: true}, 3, 20},
		{"flip up to down", Transition{AddedDownvote: true, RemovedUpvote: true}, -3, -20},
		{"nothing fired", Transition{}, 0, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := tt.transition.Delta()
			assert.Equal(t, tt.voter, d.Voter, "voter delta")
			assert.Equal(t, tt.author, d.Author, "author delta")
		})
	}
}

// Toggling twice with no intervening vote must net out to zero for both
// the vote state and the reputation movement.
func TestToggleIsIdempotent(t *testing.T) {
	for _, action := range []Action{Upvote, Downvote} {
		first := Resolve(false, false, action)
		wasUp := first.AddedUpvote
		wasDown := first.AddedDownvote
		second := Resolve(wasUp, wasDown, action)

		d1 := first.Delta()
		d2 := second.Delta()
		assert.Zero(t, d1.Voter+d2.Voter, "voter reputation should return to start for %v", action)
		assert.Zero(t, d1.Author+d2.Author, "author reputation should return to start for %v", action)

		// The second call removes exactly what the first added.
		assert.Equal(t, first.AddedUpvote, second.RemovedUpvote)
		assert.Equal(t, first.AddedDownvote, second.RemovedDownvote)
	}
}

// A flip is the composition of the retraction and the fresh opposite vote.
func TestFlipComposesEdges(t *testing.T) {
	flip := Resolve(false, true, Upvote)
	retract := Resolve(false, true, Downvote)
	fresh := Resolve(false, false, Upvote)

	assert.Equal(t, retract.Delta().Voter+fresh.Delta().Voter, flip.Delta().Voter)
	assert.Equal(t, retract.Delta().Author+fresh.Delta().Author, flip.Delta().Author)
}
