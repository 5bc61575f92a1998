// Package search indexes the locally cached history and answers the /find
// command. It decouples the raw command input from the index engine.
package search

import (
	"strconv"
	"strings"
)

const defaultLimit = 10

// Query represents the structured parameters of a message search.
type Query struct {
	RawInput  string // The original command text
	Terms     string // The actual text to match
	SessionID string // Restrict to one conversation, empty for all
	Sender    string // Restrict to one sender id, empty for all
	Limit     int    // Maximum number of hits
}

// ParseQuery extracts command-line style arguments from a raw string.
// Example: /find invoice overdue --session 42 --from df76 --limit 5
func ParseQuery(input string) *Query {
	query := &Query{
		RawInput: input,
		Limit:    defaultLimit,
	}

	parts := strings.Fields(input)
	var textTerms []string

	for i := 0; i < len(parts); i++ {
		part := parts[i]

		if strings.HasPrefix(part, "--") && i+1 < len(parts) {
			key := strings.TrimPrefix(part, "--")
			val := parts[i+1]

			switch key {
			case "session":
				query.SessionID = val
			case "from":
				query.Sender = val
			case "limit":
				if n, err := strconv.Atoi(val); err == nil && n > 0 {
					query.Limit = n
				}
			}
			i++ // Skip the consumed value
			continue
		}

		// Leading slash is the command itself, not a term
		if !strings.HasPrefix(part, "/") {
			textTerms = append(textTerms, part)
		}
	}

	query.Terms = strings.Join(textTerms, " ")
	return query
}
