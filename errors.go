package lelet

import (
	"errors"
	"fmt"

	"github.com/isgasho/lelet/internal/sched"
)

// ErrAlreadyInitialized is returned by SetNumCPUs once any task has been
// spawned — spec.md §6: "set_num_cpus(n) -> ok | error(already
// initialized)".
var ErrAlreadyInitialized = errors.New("lelet: system already initialized")

// asConfigError wraps a sched package error with the public sentinel, so
// callers can errors.Is(err, ErrAlreadyInitialized) without importing
// internal/sched.
func asConfigError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, sched.ErrAlreadyInitialized) {
		return fmt.Errorf("%w: %v", ErrAlreadyInitialized, err)
	}
	return err
}
