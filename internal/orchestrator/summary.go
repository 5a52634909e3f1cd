package orchestrator

import "time"

// Summary aggregates the results of a suite run.
type Summary struct {
	StartTime time.Time
	EndTime   time.Time
	Duration  time.Duration

	Total   int
	Passed  int
	Failed  int
	Errors  int
	Skipped int

	// Interrupted is set when the run was cancelled before every selected
	// test had run.
	Interrupted bool

	Results []Result
}

// NewSummary starts a summary at the current time.
func NewSummary() *Summary {
	return &Summary{StartTime: time.Now()}
}

// Add records one result.
func (s *Summary) Add(r Result) {
	s.Results = append(s.Results, r)
	s.Total++
	switch r.Status {
	case StatusPassed:
		s.Passed++
	case StatusFailed:
		s.Failed++
	case StatusError:
		s.Errors++
	case StatusSkipped:
		s.Skipped++
	}
}

// Finish stamps the end time.
func (s *Summary) Finish() {
	s.EndTime = time.Now()
	s.Duration = s.EndTime.Sub(s.StartTime)
}

// Succeeded reports whether the run completed and no test failed or errored.
func (s *Summary) Succeeded() bool {
	return !s.Interrupted && s.Failed == 0 && s.Errors == 0
}
