package orders

import "strings"

// paidMarkerPrefix is the human-readable trace appended to an order's notes
// at settlement, e.g. "[PAID:pi_123]". The settlements table is the
// authoritative record; the marker additionally bars a half-updated order
// from ever being resolved as active again.
const paidMarkerPrefix = "[PAID:"

// PaidMarker renders the notes trace for a payment reference.
func PaidMarker(paymentRef string) string {
	return paidMarkerPrefix + paymentRef + "]"
}

func hasPaidMarker(notes string) bool {
	return strings.Contains(notes, paidMarkerPrefix)
}

// appendNote joins free-text notes with the given separator, dropping
// empty parts and stray leading/trailing separators. Notes are append-only:
// a resubmission adds to what is there, never replaces it.
func appendNote(existing, added, sep string) string {
	existing = strings.Trim(existing, sep+" ")
	added = strings.Trim(added, sep+" ")
	switch {
	case existing == "":
		return added
	case added == "":
		return existing
	default:
		return existing + sep + added
	}
}
