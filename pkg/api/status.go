package api

// Status is the outcome of an item (step or job instance).
type Status string

const (
	// StatusPending default status, item has not started yet
	StatusPending Status = "PENDING"

	// StatusRunning status for items currently executing
	StatusRunning Status = "RUNNING"

	// StatusSucceeded status for items finished successfully
	StatusSucceeded Status = "SUCCEEDED"

	// StatusFailed status for items finished with an error
	StatusFailed Status = "FAILED"

	// StatusTimedOut status for steps forcibly terminated after their timeout.
	// A timed out step fails its job.
	StatusTimedOut Status = "TIMED_OUT"

	// StatusSkipped status for steps never executed because an earlier step of
	// the same job did not succeed
	StatusSkipped Status = "SKIPPED"

	// StatusCancelled status for job instances never executed because a
	// prerequisite failed, or because the run was aborted
	StatusCancelled Status = "CANCELLED"
)

// Finished returns true if the status is terminal.
func (s Status) Finished() bool {
	for _, fs := range []Status{StatusSucceeded, StatusFailed, StatusTimedOut, StatusSkipped, StatusCancelled} {
		if s == fs {
			return true
		}
	}
	return false
}

// Verdict is the single pipeline-wide success signal.
type Verdict string

const (
	// VerdictSuccess every job instance succeeded
	VerdictSuccess Verdict = "SUCCESS"

	// VerdictFailure at least one job instance failed or never ran
	VerdictFailure Verdict = "FAILURE"
)
