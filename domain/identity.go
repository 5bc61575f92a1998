package domain

import "strings"

// NormalizeID reduces an identity value to its comparable form: lowercase,
// with every character outside [a-z0-9] stripped. This makes UUIDs match
// across dash and case variance, and numeric ids match their string form.
func NormalizeID(id string) string {
	var b strings.Builder
	b.Grow(len(id))
	for _, r := range strings.ToLower(id) {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// SameIdentity reports whether two raw identity values refer to the same
// principal after normalization. An empty normalized value never matches.
func SameIdentity(a, b string) bool {
	na, nb := NormalizeID(a), NormalizeID(b)
	if na == "" || nb == "" {
		return false
	}
	return na == nb
}

// IsMine reports whether a message sender resolves to the viewer.
// Total and pure: absent operands simply yield false.
func IsMine(sender SenderRef, viewerID string) bool {
	return SameIdentity(sender.Scalar(), viewerID)
}
