package mmu

// nextVictim picks the slot WriteRandom replaces. Wired slots are always
// excluded. The generator is a deliberately simple linear-congruential
// draw with two rules layered on top:
//
//  1. the slot chosen last time is skipped by one redraw, so back-to-back
//     refills spread across the store the way the architectural Random
//     register does;
//  2. if the redraw collides again, the choice advances cyclically to the
//     next non-wired slot instead of drawing further.
//
// Both rules keep the sequence fully determined by the seed, so refill
// patterns reproduce across runs.
func (t *TLB) nextVictim() int {
	replaceable := len(t.entries) - t.wired
	if replaceable == 1 {
		return t.wired
	}

	t.seed = t.seed*314159 + 1
	index := int(t.seed>>16)%replaceable + t.wired

	if index == t.prev {
		t.seed = t.seed*314159 + 1
		index = int(t.seed>>16)%replaceable + t.wired
		if index == t.prev {
			index++
			if index >= len(t.entries) {
				index = t.wired
			}
		}
	}

	t.prev = index
	return index
}
