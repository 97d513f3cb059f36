package cp0

// ThreadContextActive reports whether the active thread context of a
// virtual processing element may run: virtual processors are enabled on
// the core, this VPE is activated, and the thread context is activated
// and not halted. It reports eligibility only; scheduling is the
// caller's concern.
func ThreadContextActive(r *Registers, mvp *MVP) bool {
	if mvp.Control&MVPControlEVP == 0 {
		return false
	}
	if r.VPEConf0&VPEConf0VPA == 0 {
		return false
	}
	if r.ActiveTC.TCStatus&TCStatusA == 0 {
		return false
	}
	if r.ActiveTC.TCHalt&TCHaltH != 0 {
		return false
	}
	return true
}

// VirtualProcessorActive reports whether a virtual processor may run
// alongside its siblings: either it has claimed exclusivity itself, or no
// sibling has. Siblings are the other VPs of the same core; the caller
// supplies their register blocks.
func VirtualProcessorActive(r *Registers, siblings []*Registers) bool {
	if r.VPControl&VPControlDIS != 0 {
		return true
	}
	for _, sib := range siblings {
		if sib == r {
			continue
		}
		if sib.VPControl&VPControlDIS != 0 {
			return false
		}
	}
	return true
}
