package queue

import "errors"

var (
	// ErrNotFound is returned when a workflow or job does not exist.
	ErrNotFound = errors.New("workflow not found")
	// ErrMintUnavailable is returned when the mint action is not enabled.
	ErrMintUnavailable = errors.New("mint action unavailable")
	// ErrStageOrder is returned when a job is created before its predecessor succeeded.
	ErrStageOrder = errors.New("previous stage has not succeeded")
)
