package track

// DefaultHistoryLength is the default number of fixes kept for a snail trail.
const DefaultHistoryLength = 500

// PositionHistory is an ordered trail of past fixes, oldest first.
type PositionHistory []Position

// Append adds p unless it equals the latest entry, then discards the oldest entries until at most
// limit remain. A limit below one is treated as one. Returns whether p was stored.
func (h *PositionHistory) Append(p Position, limit int) bool {
	if last, ok := h.Latest(); ok && last == p {
		return false
	}

	limit = max(limit, 1)
	trail := append(*h, p)
	if excess := len(trail) - limit; excess > 0 {
		// copy so the dropped prefix does not keep the backing array alive forever
		trail = append(PositionHistory(nil), trail[excess:]...)
	}
	*h = trail

	return true
}

// Latest returns the newest entry.
func (h PositionHistory) Latest() (Position, bool) {
	if len(h) == 0 {
		return Position{}, false
	}
	return h[len(h)-1], true
}

// First returns the oldest entry.
func (h PositionHistory) First() (Position, bool) {
	if len(h) == 0 {
		return Position{}, false
	}
	return h[0], true
}
