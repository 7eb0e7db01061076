package reconciler

import "github.com/ELENA-QPA/elena-case-sync/internal/database"

// RecordError is one captured per-record failure.
type RecordError struct {
	Docket  string `json:"docket"`
	Message string `json:"message"`
}

// Summary aggregates the outcomes of one reconciliation run.
type Summary struct {
	Created int           `json:"created"`
	Updated int           `json:"updated"`
	Skipped int           `json:"skipped"`
	Errored int           `json:"errored"`
	Total   int           `json:"total"`
	Errors  []RecordError `json:"errors,omitempty"`
}

// Add folds one result into the summary.
func (s *Summary) Add(r Result) {
	s.Total++
	switch r.Outcome {
	case OutcomeCreated:
		s.Created++
	case OutcomeUpdated:
		s.Updated++
	case OutcomeSkipped:
		s.Skipped++
	case OutcomeError:
		s.Errored++
		s.Errors = append(s.Errors, RecordError{Docket: r.Docket, Message: r.Message})
	}
}

// Status maps the counts onto a terminal run status: success with no errors,
// partial when some records still landed, error when nothing did.
func (s *Summary) Status() string {
	switch {
	case s.Errored == 0:
		return database.StatusSuccess
	case s.Created+s.Updated+s.Skipped > 0:
		return database.StatusPartial
	default:
		return database.StatusError
	}
}
