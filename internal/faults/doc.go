// Package faults defines the error taxonomy shared by every sortdir phase.
//
// Each failure category is a sentinel marker. Wrap tags an underlying cause
// with a marker plus phase/operation context so callers can classify with
// errors.Is while still reaching the original cause. Failure is the record the
// organizer aggregates into its end-of-run report; only precondition failures
// and cancellation abort a run, everything else is isolated per file or branch.
package faults
