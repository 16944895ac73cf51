package discovery

import (
	"context"
	"errors"
	"fmt"
)

// Stage names the step of the booking flow at which a run was aborted
type Stage string

const (
	StageEntry        Stage = "EntryFailed"
	StageServiceType  Stage = "ServiceTypeUnavailable"
	StageLocationList Stage = "LocationListUnavailable"
)

// Error is a fatal discovery failure. No observations are returned with it.
type Error struct {
	Stage Stage
	Err   error
}

func (e *Error) Error() string {
	return fmt.Sprintf("discovery %s: %v", e.Stage, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// StageOf returns the stage carried by a discovery failure
func StageOf(err error) (Stage, bool) {
	var de *Error
	if errors.As(err, &de) {
		return de.Stage, true
	}
	return "", false
}

func fail(stage Stage, err error) error {
	return &Error{Stage: stage, Err: err}
}

// fatal aborts the run at stage, unless the run was cancelled, in which
// case the context error is returned as-is
func fatal(ctx context.Context, stage Stage, err error) error {
	if cerr := ctx.Err(); cerr != nil {
		return cerr
	}
	return fail(stage, err)
}
