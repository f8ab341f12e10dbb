package upload

import "github.com/hummingbird/service/internal/media"

// Outcome is the result of one Ingest call. It is implemented only by
// Accepted, Rejected and Failed; callers switch over all three.
type Outcome interface {
	outcome()
}

// Accepted means the file is stored and its descriptor recorded.
type Accepted struct {
	Key   string
	Media media.Media
}

// Rejected is a classified client-input failure. Nothing was persisted.
// Message is safe to return to the caller; Err is for logs only.
type Rejected struct {
	Kind    Kind
	Status  int
	Message string
	Err     error
}

// Failed is an internal failure. Nothing was recorded in the metadata store
// and Cause must not be shown to the caller.
type Failed struct {
	Cause error
}

func (Accepted) outcome() {}
func (Rejected) outcome() {}
func (Failed) outcome()   {}
