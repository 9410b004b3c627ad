package mcp_tools

import (
	"fmt"
	"sort"

	"github.com/toon-format/toon-go"
)

// MarshalTOON converts a Go value into a TOON string. On failure, it returns a
// human-friendly error string so MCP tools still provide feedback instead of
// silently failing.
func MarshalTOON(data interface{}) string {
	out, err := toon.MarshalString(data, toon.WithLengthMarkers(true))
	if err != nil {
		return fmt.Sprintf("error: failed to marshal to TOON: %v", err)
	}
	return out
}

// AlternativeSuggestions carries "did you mean" hints attached to a failed
// lookup: fuzzy name matches and/or other known ids, so callers can
// self-correct without a second round trip.
type AlternativeSuggestions struct {
	SimilarNames []string
	OtherIDs     []string
}

// CreateEmptyResultTOON builds a standard TOON response for empty results.
// suggestions can carry similar names (did_you_mean) and/or other ids
// (available_ids); empty lists are omitted.
func CreateEmptyResultTOON(message string, suggestions AlternativeSuggestions) string {
	payload := map[string]interface{}{
		"message": message,
	}

	if len(suggestions.SimilarNames) > 0 {
		payload["did_you_mean"] = suggestions.SimilarNames
	}
	if len(suggestions.OtherIDs) > 0 {
		payload["available_ids"] = suggestions.OtherIDs
	}

	return MarshalTOON(payload)
}

// TopAlternativesFromCounts converts a map of counts into a sorted list of
// "id (count)" strings limited to the provided size. It sorts by count
// descending and then by key for deterministic output.
func TopAlternativesFromCounts(counts map[string]int, limit int) []string {
	type kv struct {
		Key   string
		Count int
	}

	items := make([]kv, 0, len(counts))
	for k, v := range counts {
		items = append(items, kv{Key: k, Count: v})
	}

	sort.Slice(items, func(i, j int) bool {
		if items[i].Count == items[j].Count {
			return items[i].Key < items[j].Key
		}
		return items[i].Count > items[j].Count
	})

	if limit <= 0 || limit > len(items) {
		limit = len(items)
	}

	alternatives := make([]string, 0, limit)
	for idx := 0; idx < limit; idx++ {
		alternatives = append(alternatives, fmt.Sprintf("%s (%d)", items[idx].Key, items[idx].Count))
	}
	return alternatives
}
