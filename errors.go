package pt

import (
	"errors"
	"fmt"
)

// Sentinel errors returned by Scheduler operations. These represent the
// "benign absence" and "resource exhaustion" error kinds: they are
// returned, never panicked.
var (
	// ErrSchedulerClosed is returned when an operation is attempted on a
	// scheduler that has completed teardown.
	ErrSchedulerClosed = errors.New("pt: scheduler is closed")

	// ErrSchedulerClosing is returned by operations that refuse new work
	// once teardown has begun.
	ErrSchedulerClosing = errors.New("pt: scheduler is closing")

	// ErrMaxWorkers is returned by WithMaxWorkers for a non-positive bound.
	ErrMaxWorkers = errors.New("pt: max workers must be >= 1")

	// ErrBucketCount is returned by WithBuckets when the bucket count is
	// not a power of two.
	ErrBucketCount = errors.New("pt: bucket count must be a power of two")
)

// InvariantKind identifies which programming invariant was violated.
// See spec §7: these conditions indicate caller bugs and are fatal,
// never recoverable — they are always delivered via panic, not a
// returned error.
type InvariantKind int

const (
	// InvariantResumeReentrant fires if a task's resume function is
	// invoked while it is already resuming.
	InvariantResumeReentrant InvariantKind = iota
	// InvariantSuspendOutsideResume fires if Yield or Wait is called for
	// a task that is not the currently-resuming task.
	InvariantSuspendOutsideResume
	// InvariantDoneAfterWait fires if a resume function both calls Wait
	// and returns Done in the same activation.
	InvariantDoneAfterWait
	// InvariantKillResuming fires if Kill targets the currently-resuming
	// task.
	InvariantKillResuming
	// InvariantReleaseNotHeld fires if RWMutex release is called by a
	// caller that does not hold the lock in the matching mode.
	InvariantReleaseNotHeld
	// InvariantTeardownWithLiveTasks fires if Close is called while
	// nthread > 0.
	InvariantTeardownWithLiveTasks
)

// String implements fmt.Stringer.
func (k InvariantKind) String() string {
	switch k {
	case InvariantResumeReentrant:
		return "resume function invoked while already resuming"
	case InvariantSuspendOutsideResume:
		return "suspension attempted outside the currently-resuming task"
	case InvariantDoneAfterWait:
		return "task returned Done after calling Wait in the same activation"
	case InvariantKillResuming:
		return "kill of the currently-resuming task"
	case InvariantReleaseNotHeld:
		return "lock released by a caller that does not hold it"
	case InvariantTeardownWithLiveTasks:
		return "teardown attempted with live tasks"
	default:
		return "unknown invariant violation"
	}
}

// InvariantError is panicked when a caller violates one of the
// programming invariants documented in spec §7. It is never returned as
// an error value.
type InvariantError struct {
	Kind InvariantKind
}

// Error implements the error interface.
func (e *InvariantError) Error() string {
	return fmt.Sprintf("pt: invariant violated: %s", e.Kind)
}

// Is reports whether target is an *InvariantError with the same Kind,
// enabling errors.Is(err, &InvariantError{Kind: ...}) comparisons against
// recovered panic values.
func (e *InvariantError) Is(target error) bool {
	var other *InvariantError
	if !errors.As(target, &other) {
		return false
	}
	return other.Kind == e.Kind
}

func invariant(kind InvariantKind) {
	panic(&InvariantError{Kind: kind})
}
