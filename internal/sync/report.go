package sync

// Outcome classifies what happened to one delta entry. Failure isolation is
// a first-class return value: a failed entry never aborts the batch.
type Outcome string

const (
	OutcomeApplied Outcome = "applied"
	OutcomeSkipped Outcome = "skipped"
	OutcomeFailed  Outcome = "failed"
)

// EntryResult records the processing outcome of one (snapshot, target) pair.
type EntryResult struct {
	Subject string // snapshot id
	Target  string // concept or instance id
	Outcome Outcome
	Reason  string
	Err     error
}

// BatchReport aggregates the per-entry results of one processed change set.
type BatchReport struct {
	Entries []EntryResult
}

func (r BatchReport) count(outcome Outcome) int {
	n := 0
	for _, e := range r.Entries {
		if e.Outcome == outcome {
			n++
		}
	}
	return n
}

func (r BatchReport) Applied() int { return r.count(OutcomeApplied) }
func (r BatchReport) Skipped() int { return r.count(OutcomeSkipped) }
func (r BatchReport) Failed() int  { return r.count(OutcomeFailed) }
