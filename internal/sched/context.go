package sched

import (
	"context"
	"strconv"
)

type machineCtxKey struct{}

type machineBinding struct {
	machine   *Machine
	processor *Processor
}

// withMachine annotates ctx with the Machine/Processor currently running
// a task, so MarkBlocking can find them without any thread-local state.
func withMachine(ctx context.Context, m *Machine, p *Processor) context.Context {
	return context.WithValue(ctx, machineCtxKey{}, machineBinding{machine: m, processor: p})
}

// machineFromContext recovers the binding installed by withMachine, if
// any. Calling MarkBlocking outside of a scheduled task's Run yields
// ok == false, and is a no-op — matching spec.md's "idempotent if no
// Processor is currently bound to the calling thread".
func machineFromContext(ctx context.Context) (*Machine, *Processor, bool) {
	b, ok := ctx.Value(machineCtxKey{}).(machineBinding)
	if !ok {
		return nil, nil, false
	}
	return b.machine, b.processor, true
}

func itoa(i int) string      { return strconv.Itoa(i) }
func itoa64(u uint64) string { return strconv.FormatUint(u, 10) }
