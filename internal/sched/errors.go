package sched

import "errors"

// ErrAlreadyInitialized is returned by System.SetNumCPUs once any task has
// been pushed through the System — spec.md §4.5/§6: parallelism may only
// be (re)configured before first use.
var ErrAlreadyInitialized = errors.New("sched: system already initialized")
