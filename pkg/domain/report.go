package domain

import "errors"

// Failure pairs a failed or blocked promise with its cause.
type Failure struct {
	ID       string
	Operator string
	Err      error
}

// Report summarizes one Run batch: which promises resolved, which failed and
// which were blocked by upstream failures. Slices are ordered by attachment
// sequence, so re-running identical user code yields identical reports.
type Report struct {
	Resolved []string
	Failed   []Failure
	Blocked  []Failure
}

// Empty reports whether the batch performed no work at all. Run on a fully
// resolved graph returns an empty report.
func (r *Report) Empty() bool {
	return len(r.Resolved) == 0 && len(r.Failed) == 0 && len(r.Blocked) == 0
}

// Err aggregates all failure causes into a single error, or nil when every
// promise resolved.
func (r *Report) Err() error {
	if len(r.Failed) == 0 {
		return nil
	}
	errs := make([]error, 0, len(r.Failed))
	for _, f := range r.Failed {
		errs = append(errs, f.Err)
	}
	return errors.Join(errs...)
}
