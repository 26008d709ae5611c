package ledger

// Action is the vote a caller requests.
type Action int

const (
	Upvote Action = iota + 1
	Downvote
)

func (a Action) String() string {
	switch a {
	case Upvote:
		return "upvote"
	case Downvote:
		return "downvote"
	default:
		return "unknown"
	}
}

// TargetKind selects which content table a vote lands on.
type TargetKind int

const (
	KindQuestion TargetKind = iota + 1
	KindAnswer
)

func (k TargetKind) String() string {
	switch k {
	case KindQuestion:
		return "question"
	case KindAnswer:
		return "answer"
	default:
		return "unknown"
	}
}

// Transition records which of the four membership edges fired for a single
// vote operation. At most one add and one remove are ever set, and never
// both edges of the same set.
type Transition struct {
	RemovedUpvote   bool
	AddedUpvote     bool
	RemovedDownvote bool
	AddedDownvote   bool
}

// Resolve computes the transition for a requested action against the voter's
// current membership. Repeating the current state retracts the vote (toggle
// off); anything else applies it, flipping away from the opposite set when
// the voter was there.
func Resolve(wasUp, wasDown bool, action Action) Transition {
	var t Transition
	switch action {
	case Upvote:
		if wasUp {
			t.RemovedUpvote = true
			return t
		}
		t.AddedUpvote = true
		if wasDown {
			t.RemovedDownvote = true
		}
	case Downvote:
		if wasDown {
			t.RemovedDownvote = true
			return t
		}
		t.AddedDownvote = true
		if wasUp {
			t.RemovedUpvote = true
		}
	}
	return t
}

// Delta is the reputation movement one transition causes.
type Delta struct {
	Voter  int
	Author int
}

// Weights per transition edge. Removing an edge is the exact negation of
// adding it, so edges compose: a downvote→upvote flip nets the voter +3 and
// the author +20.
const (
	voterAddUpvote    = 1
	authorAddUpvote   = 10
	voterAddDownvote  = -2
	authorAddDownvote = -10
)

// Delta folds the weight of every fired edge into one pair of increments.
func (t Transition) Delta() Delta {
	var d Delta
	if t.AddedUpvote {
		d.Voter += voterAddUpvote
		d.Author += authorAddUpvote
	}
	if t.RemovedUpvote {
		d.Voter -= voterAddUpvote
		d.Author -= authorAddUpvote
	}
	if t.AddedDownvote {
		d.Voter += voterAddDownvote
		d.Author += authorAddDownvote
	}
	if t.RemovedDownvote {
		d.Voter -= voterAddDownvote
		d.Author -= authorAddDownvote
	}
	return d
}
