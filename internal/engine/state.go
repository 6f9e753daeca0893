package engine

import (
	"github.com/roach88/playscript/internal/diag"
	"github.com/roach88/playscript/internal/script"
)

// BranchState tracks which phase of an if block the interpreter is in.
type BranchState int

const (
	Normal BranchState = iota
	SeekingBranch
	InMatchedBranch
	SeekingTerminator
)

func (b BranchState) String() string {
	switch b {
	case Normal:
		return "normal"
	case SeekingBranch:
		return "seeking-branch"
	case InMatchedBranch:
		return "in-matched-branch"
	case SeekingTerminator:
		return "seeking-terminator"
	default:
		return "unknown"
	}
}

// State is the interpreter's control state.
type State struct {
	// Jump is the pending jump target, nil when none.
	Jump *script.Target

	// Branch is the branch state.
	Branch BranchState

	// OpenIf is the line of the open if, 0 when no block is open.
	OpenIf int
}

// Suppressed reports whether a non-branch keyword is skipped.
func (s State) Suppressed() bool {
	return s.Branch == SeekingBranch || s.Branch == SeekingTerminator
}

// branchAction is what the dispatcher does with a line after the branch
// state has seen it.
type branchAction int

const (
	actExecute branchAction = iota
	actSkip
	actEvaluate // evaluate an if/elseif condition, or take an else
	actClose    // fi
)

// advance applies the branch state machine to a keyword. It reports the
// action and returns errors for lines that cannot appear in the current
// state.
func (s *State) advance(kw script.Keyword, line int) (branchAction, error) {
	switch kw {
	case script.If:
		if s.Branch != Normal {
			return 0, diag.Errorf(diag.KindSyntax, "nested if blocks are not supported (if opened on line %d)", s.OpenIf)
		}
		s.OpenIf = line
		return actEvaluate, nil

	case script.ElseIf, script.Else:
		switch s.Branch {
		case Normal:
			return 0, diag.Errorf(diag.KindSyntax, "%s without a matching if", kw)
		case SeekingBranch:
			return actEvaluate, nil
		case InMatchedBranch:
			s.Branch = SeekingTerminator
			return actSkip, nil
		default:
			return actSkip, nil
		}

	case script.Fi:
		if s.Branch == Normal {
			return 0, diag.Errorf(diag.KindSyntax, "fi without a matching if")
		}
		s.Branch = Normal
		s.OpenIf = 0
		return actClose, nil
	}

	if s.Suppressed() {
		return actSkip, nil
	}
	return actExecute, nil
}

// take records the outcome of an evaluated condition.
func (s *State) take(matched bool) {
	if matched {
		s.Branch = InMatchedBranch
	} else {
		s.Branch = SeekingBranch
	}
}
