package sched

import "context"

// Machine is a short-lived driver of one Processor's run loop (spec.md
// §3/§4.4). It has no queues of its own — every queue is Processor-
// scoped — and no lifetime beyond "run until revoked".
type Machine struct {
	id  uint64
	sys *System
}

// spawnMachine allocates a fresh Machine with a unique id and submits its
// run loop to the System's ThreadPool, wrapped in the same panic-is-fatal
// guard the scheduler uses everywhere (spec.md §7).
func spawnMachine(sys *System, p *Processor) *Machine {
	m := &Machine{id: sys.nextMachineID(), sys: sys}
	sys.threadPool.Go(func() {
		runProtected(func() {
			p.Run(context.Background(), m, p.Worker())
		})
	})
	return m
}

// revoke is the single atomic store that performs the hand-off described
// in spec.md §4.4: the new Machine overwrites the victim Processor's
// machineID, and begins running it. The Machine whose id no longer
// matches discovers this between tasks and exits.
func (m *Machine) revoke(p *Processor) {
	p.machineID.Store(m.id)
}

// MarkBlocking implements spec.md §4.6: if ctx carries a Processor
// binding (installed by Processor.runTask around every Task.Run call), it
// immediately triggers a Machine respawn onto that Processor, so other
// ready work on it continues on a fresh Machine while the caller's
// goroutine keeps going with whatever blocking call follows. A no-op
// outside of a running task, matching the idempotent-if-unbound contract.
func MarkBlocking(ctx context.Context) {
	_, p, ok := machineFromContext(ctx)
	if !ok {
		return
	}
	respawnOnto(p.sys, p)
}

// respawnOnto revokes p from whichever Machine currently holds it and
// binds + runs a freshly spawned one in its place — the mechanics shared
// by both sysmon's stall recovery and the user-facing MarkBlocking hint.
func respawnOnto(sys *System, p *Processor) *Machine {
	fresh := &Machine{id: sys.nextMachineID(), sys: sys}
	fresh.revoke(p)
	sys.threadPool.Go(func() {
		runProtected(func() {
			p.Run(context.Background(), fresh, p.Worker())
		})
	})
	return fresh
}
