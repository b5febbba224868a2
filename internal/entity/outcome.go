package entity

type OutcomeKind string

const (
	OutcomeInProgress OutcomeKind = "in_progress"
	OutcomeWin        OutcomeKind = "win"
	OutcomeDraw       OutcomeKind = "draw"
)

type Outcome struct {
	Kind   OutcomeKind `json:"kind"`
	Winner Mark        `json:"winner,omitempty"`
	Line   []int       `json:"line,omitempty"`
}

func (that Outcome) IsTerminal() bool {
	return that.Kind == OutcomeWin || that.Kind == OutcomeDraw
}

// ResultFor - translates the outcome into a result for the player holding mark.
func (that Outcome) ResultFor(mark Mark) GameResult {
	switch {
	case that.Kind == OutcomeDraw:
		return ResultDraw
	case that.Kind == OutcomeWin && that.Winner == mark:
		return ResultWin
	case that.Kind == OutcomeWin:
		return ResultLoss
	default:
		return ""
	}
}
