package migration

// OutcomeStatus classifies the result of migrating one entity.
type OutcomeStatus string

const (
	OutcomeOK      OutcomeStatus = "ok"
	OutcomeSkipped OutcomeStatus = "skipped"
	OutcomeFailed  OutcomeStatus = "failed"
)

// Outcome is the per-entity result a pipeline reports instead of silently
// swallowing failures: siblings continue, the caller aggregates.
type Outcome struct {
	Kind     Kind
	SourceID int64
	Status   OutcomeStatus
	Reason   string
	Err      error
}

func OK(kind Kind, sourceID int64) Outcome {
	return Outcome{Kind: kind, SourceID: sourceID, Status: OutcomeOK}
}

func Skipped(kind Kind, sourceID int64, reason string) Outcome {
	return Outcome{Kind: kind, SourceID: sourceID, Status: OutcomeSkipped, Reason: reason}
}

func Failed(kind Kind, sourceID int64, err error) Outcome {
	return Outcome{Kind: kind, SourceID: sourceID, Status: OutcomeFailed, Err: err}
}

// OutcomeSet collects per-entity outcomes for one pipeline invocation.
type OutcomeSet struct {
	Outcomes []Outcome
}

func (s *OutcomeSet) Add(o Outcome) { s.Outcomes = append(s.Outcomes, o) }

func (s *OutcomeSet) Count(status OutcomeStatus) int {
	n := 0
	for _, o := range s.Outcomes {
		if o.Status == status {
			n++
		}
	}
	return n
}

func (s *OutcomeSet) Merge(other OutcomeSet) {
	s.Outcomes = append(s.Outcomes, other.Outcomes...)
}
