package health

import "fmt"

// ProbeError is an infrastructure failure of the liveness probe. An
// unreachable host is not a ProbeError.
type ProbeError struct {
	Hostname string
	Err      error
}

func (e *ProbeError) Error() string {
	return fmt.Sprintf("probe %s: %v", e.Hostname, e.Err)
}

func (e *ProbeError) Unwrap() error { return e.Err }

type StoreReadError struct {
	Op  string
	Err error
}

func (e *StoreReadError) Error() string {
	return fmt.Sprintf("store read %s: %v", e.Op, e.Err)
}

func (e *StoreReadError) Unwrap() error { return e.Err }

type StoreWriteError struct {
	Op  string
	Err error
}

func (e *StoreWriteError) Error() string {
	return fmt.Sprintf("store write %s: %v", e.Op, e.Err)
}

func (e *StoreWriteError) Unwrap() error { return e.Err }

// DataInconsistencyError reports a broken active-incident invariant: an
// operation expected exactly one active incident (or none, when opening) and
// found Active of them.
type DataInconsistencyError struct {
	Hostname string
	Op       string
	Active   int64
}

func (e DataInconsistencyError) Error() string {
	if e.Hostname == "" {
		return "data inconsistency"
	}
	return fmt.Sprintf("data inconsistency on %s for %s: %d active incidents", e.Op, e.Hostname, e.Active)
}

// Is enables errors.Is matching on DataInconsistencyError.
func (e DataInconsistencyError) Is(target error) bool {
	_, ok := target.(DataInconsistencyError)
	if ok {
		return true
	}
	_, ok = target.(*DataInconsistencyError)
	return ok
}

// ErrDataInconsistency is the sentinel for DataInconsistencyError.
var ErrDataInconsistency = DataInconsistencyError{}
