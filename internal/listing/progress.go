package listing

import "fmt"

// Step identifies what a running flow is currently doing.
type Step int

const (
	StepIdle Step = iota
	StepAnalyzing
	StepCoverImage
	StepLifestyle
	StepRegenerating
	StepRefining
)

// Progress is reported before every network step. Current and Total are
// only set for StepLifestyle, Current being 1-based.
type Progress struct {
	Step    Step
	Current int
	Total   int
}

// ProgressFunc receives progress updates. It is called synchronously from
// the flow, so it must not block for long.
type ProgressFunc func(p Progress)

// Done reports whether the flow has finished and the status should be cleared.
func (p Progress) Done() bool {
	return p.Step == StepIdle
}

func (p Progress) String() string {
	switch p.Step {
	case StepIdle:
		return ""
	case StepAnalyzing:
		return "analyzing object"
	case StepCoverImage:
		return "creating cover image"
	case StepLifestyle:
		return fmt.Sprintf("lifestyle placement (%d/%d)", p.Current, p.Total)
	case StepRegenerating:
		return "custom regeneration"
	case StepRefining:
		return "optimizing description"
	default:
		return "working"
	}
}
