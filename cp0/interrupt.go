package cp0

// InterruptsEnabled reports whether hardware interrupts are globally
// accepted: the interrupt-enable bit is set, the CPU is at neither
// exception nor error level, it is not in debug mode, and the active
// thread context is not interrupt-exempt. The IXMT bit is zero on cores
// without the MT module, so no capability check is needed.
func InterruptsEnabled(r *Registers) bool {
	return r.Status&StatusIE != 0 &&
		r.Status&StatusEXL == 0 &&
		r.Status&StatusERL == 0 &&
		!r.DebugMode() &&
		r.ActiveTC.TCStatus&TCStatusIXMT == 0
}

// InterruptsPending reports whether an unmasked interrupt is pending.
//
// With an external interrupt controller (Config3.VEIC) the controller
// feeds a priority level into the Cause pending field and the Status mask
// field is a threshold: the request is pending only while strictly above
// it. Otherwise the pending field holds individual request lines and the
// mask field individual enables. Both behaviors are architectural; which
// one applies is fixed by the interrupt wiring of the modeled system.
func InterruptsPending(r *Registers) bool {
	pending := r.Cause & CauseIPMask
	status := r.Status & CauseIPMask

	if r.Config3&Config3VEIC != 0 {
		return pending > status
	}
	return pending&status != 0
}

// InterruptReady combines InterruptsEnabled and InterruptsPending, the
// check the dispatch loop performs each cycle.
func InterruptReady(r *Registers) bool {
	return InterruptsEnabled(r) && InterruptsPending(r)
}
