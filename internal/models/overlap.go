package models

// Overlaps reports whether a proposed [newStart, newEnd) interval collides
// with an existing [existingStart, existingEnd) interval on the same resource
// and day. Times are zero-padded "15:04" strings, compared lexicographically.
//
// The three clauses mirror the SQL conflict queries used by the repositories:
//
//	existing_start <= new_start AND existing_end > new_start
//	existing_start <  new_end   AND existing_end >= new_end
//	existing_start >= new_start AND existing_end <= new_end
//
// Intervals are half-open, so a booking ending at 10:00 never collides with
// one starting at 10:00. For well-formed inputs (start < end) this form agrees
// with OverlapsCanonical; the two diverge only for zero-length proposals
// sitting exactly on an existing slot's boundary (see overlap_test.go).
func Overlaps(existingStart, existingEnd, newStart, newEnd string) bool {
	if existingStart <= newStart && existingEnd > newStart {
		return true
	}
	if existingStart < newEnd && existingEnd >= newEnd {
		return true
	}
	if existingStart >= newStart && existingEnd <= newEnd {
		return true
	}
	return false
}

// OverlapsCanonical is the textbook half-open interval intersection test.
// Kept alongside Overlaps so tests can pin down where the two forms differ.
func OverlapsCanonical(existingStart, existingEnd, newStart, newEnd string) bool {
	return newStart < existingEnd && existingStart < newEnd
}
