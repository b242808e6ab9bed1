package testing

import "time"

// Status is the outcome of one test function.
type Status int

const (
	StatusPassed Status = iota
	StatusFailed
	StatusSkipped
	StatusError
)

func (s Status) String() string {
	switch s {
	case StatusPassed:
		return "PASS"
	case StatusFailed:
		return "FAIL"
	case StatusSkipped:
		return "SKIP"
	case StatusError:
		return "ERROR"
	}
	return "UNKNOWN"
}

// AssertionError records one failed assertion. Got and Want hold the reprs
// of the compared values and are empty when the assertion had none.
type AssertionError struct {
	Message string
	File    string
	Got     string
	Want    string
}

// TestResult is the outcome of one test function.
type TestResult struct {
	Name       string
	Status     Status
	Duration   time.Duration
	Failures   []AssertionError
	Logs       []string
	SkipReason string
	Error      error
}

// FileResult holds the results of one test file. LoadErr is set when the
// file could not be read, compiled or run, in which case Tests is empty.
type FileResult struct {
	Filename string
	LoadErr  error
	Tests    []*TestResult
}

// Summary aggregates the results of a test run.
type Summary struct {
	Files    []*FileResult
	Duration time.Duration
	Passed   int
	Failed   int
	Skipped  int
	Errors   int
}

// ComputeTotals recounts the totals from Files.
func (s *Summary) ComputeTotals() {
	s.Passed, s.Failed, s.Skipped, s.Errors = 0, 0, 0, 0
	for _, file := range s.Files {
		if file.LoadErr != nil {
			s.Errors++
		}
		for _, test := range file.Tests {
			switch test.Status {
			case StatusPassed:
				s.Passed++
			case StatusFailed:
				s.Failed++
			case StatusSkipped:
				s.Skipped++
			case StatusError:
				s.Errors++
			}
		}
	}
}

// Success reports whether nothing failed or errored.
func (s *Summary) Success() bool {
	return s.Failed == 0 && s.Errors == 0
}
