package models

import "strings"

// SanitizeKeySegment escapes delimiter characters in limiter key segments to
// prevent key collision attacks where user-controlled identifiers containing
// ':' could manipulate adjacent limiter buckets.
func SanitizeKeySegment(s string) string {
	return strings.ReplaceAll(s, ":", "_")
}

// RecordKey addresses one limiter record.
type RecordKey struct {
	Identifier string
	Endpoint   string
}

// NewRecordKey builds a collision-safe key for an identifier and endpoint.
func NewRecordKey(identifier, endpoint string) RecordKey {
	return RecordKey{
		Identifier: SanitizeKeySegment(identifier),
		Endpoint:   SanitizeKeySegment(endpoint),
	}
}

func (k RecordKey) String() string {
	return k.Identifier + ":" + k.Endpoint
}
