package episode

// Seating formalises the BB/SB alternation law of spec §3 and testable
// property #7: hero seats are [BB, SB, BB, SB, ...] starting at hand
// index 0.
func HeroSeatForHand(handIndex int) string {
	if handIndex%2 == 0 {
		return "BB"
	}
	return "SB"
}

// RivalSeatFor returns the other heads-up seat.
func RivalSeatFor(heroSeat string) string {
	if heroSeat == "BB" {
		return "SB"
	}
	return "BB"
}
