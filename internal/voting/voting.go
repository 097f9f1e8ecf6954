// Package voting holds the reputation ledger and the vote state machine.
// Nothing here touches the database; callers apply the returned transition.
package voting

import (
	"fmt"

	"github.com/emilythestrangee/stackit/backend/internal/models"
)

// Action is what happened to the caller's vote row.
type Action string

const (
	ActionCreated Action = "created"
	ActionChanged Action = "changed"
	ActionRemoved Action = "removed"
)

// deltas is keyed by target kind so the two tables can diverge later.
// Today questions and answers pay the same.
var deltas = map[models.TargetKind]map[models.VoteType]int{
	models.TargetQuestion: {models.VoteUp: 10, models.VoteDown: -2},
	models.TargetAnswer:   {models.VoteUp: 10, models.VoteDown: -2},
}

// ReputationDelta returns the reputation a vote of type t on content of the
// given kind earns the content's author. Unknown inputs earn nothing.
func ReputationDelta(t models.VoteType, kind models.TargetKind) int {
	return deltas[kind][t]
}

// Transition is the outcome of casting a vote over an existing state.
type Transition struct {
	Action Action
	// Type is the vote type stored after the transition. It is empty when
	// the vote was removed.
	Type  models.VoteType
	Delta int
}

// Decide computes the transition for a requested vote given the caller's
// existing vote on the same target (nil when there is none).
func Decide(existing *models.VoteType, requested models.VoteType, kind models.TargetKind) (Transition, error) {
	if !requested.Valid() {
		return Transition{}, fmt.Errorf("invalid vote type %q", requested)
	}
	if kind != models.TargetQuestion && kind != models.TargetAnswer {
		return Transition{}, fmt.Errorf("invalid target kind %q", kind)
	}

	switch {
	case existing == nil:
		return Transition{
			Action: ActionCreated,
			Type:   requested,
			Delta:  ReputationDelta(requested, kind),
		}, nil
	case *existing == requested:
		return Transition{
			Action: ActionRemoved,
			Delta:  -ReputationDelta(requested, kind),
		}, nil
	default:
		return Transition{
			Action: ActionChanged,
			Type:   requested,
			Delta:  ReputationDelta(requested, kind) - ReputationDelta(*existing, kind),
		}, nil
	}
}

// Counts is the aggregate vote tally of one target.
type Counts struct {
	Upvotes   int `json:"upvotes"`
	Downvotes int `json:"downvotes"`
	Total     int `json:"total"`
}

func NewCounts(up, down int) Counts {
	return Counts{Upvotes: up, Downvotes: down, Total: up - down}
}
