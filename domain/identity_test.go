package domain

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNormalizeID(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{name: "lowercase passthrough", input: "abc123", expected: "abc123"},
		{name: "uppercase folded", input: "ABC123", expected: "abc123"},
		{name: "uuid with dashes", input: "550E8400-E29B-41D4-A716-446655440000", expected: "550e8400e29b41d4a716446655440000"},
		{name: "spaces and underscores stripped", input: " user_42 ", expected: "user42"},
		{name: "only punctuation", input: "--__--", expected: ""},
		{name: "empty", input: "", expected: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, tt.expected, NormalizeID(tt.input))
		})
	}
}

func TestSameIdentity(t *testing.T) {
	req := require.New(t)

	req.True(SameIdentity("User-42", "user42"))
	req.True(SameIdentity("550e8400-e29b", "550E8400E29B"))
	req.False(SameIdentity("user42", "user43"))

	// Two ids that normalize to empty never match, not even each other.
	req.False(SameIdentity("", ""))
	req.False(SameIdentity("---", "___"))
}

func TestIsMine(t *testing.T) {
	req := require.New(t)

	req.True(IsMine(NewSenderRef("User-42"), "user42"))
	req.False(IsMine(NewSenderRef("other"), "user42"))
	req.False(IsMine(SenderRef{}, "user42"))
	req.False(IsMine(NewSenderRef("user42"), ""))
}
