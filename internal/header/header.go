// Copyright 2025 coregx. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package header provides header and date utilities shared by the engine:
// ETag quoting, the three legal HTTP date formats, Title-Case
// canonicalization of header names, and the Vary merge rule.
//
// This package is internal and not part of the public API.
package header

import (
	"strings"
	"time"
)

// The three HTTP date formats legal for If-Modified-Since /
// If-Unmodified-Since. CanonicalDateFormat (RFC 1123, the first of the
// three) is what the engine emits on Last-Modified/Expires.
const (
	CanonicalDateFormat = "Mon, 02 Jan 2006 15:04:05 GMT"
	rfc850Format        = "Monday, 02-Jan-06 15:04:05 GMT"
	ansicFormat         = "Mon Jan 2 15:04:05 2006"
)

var dateFormats = []string{CanonicalDateFormat, rfc850Format, ansicFormat}

// ParseDate parses an HTTP date value against the three legal formats in
// order. ok is false if none matched, which callers must treat as "header
// not usable" rather than an error.
func ParseDate(value string) (t time.Time, ok bool) {
	value = strings.TrimSpace(value)
	if value == "" {
		return time.Time{}, false
	}
	for _, layout := range dateFormats {
		if parsed, err := time.ParseInLocation(layout, value, time.UTC); err == nil {
			return parsed, true
		}
	}
	return time.Time{}, false
}

// FormatDate renders t using the canonical (first-listed) HTTP date format.
func FormatDate(t time.Time) string {
	return t.UTC().Format(CanonicalDateFormat)
}

// Quote wraps an ETag value in double quotes, unless it already carries them
// (an ETag that is already quoted is returned unchanged).
func Quote(etag string) string {
	if IsQuoted(etag) {
		return etag
	}
	return `"` + etag + `"`
}

// Unquote strips a single pair of surrounding double quotes from an ETag
// value, including an optional leading weak-validator "W/" marker. Unquoting
// an already-unquoted value is a no-op.
func Unquote(etag string) string {
	s := etag
	weak := strings.HasPrefix(s, "W/")
	if weak {
		s = s[2:]
	}
	if len(s) >= 2 && s[0] == '"' && s[len(s)-1] == '"' {
		s = s[1 : len(s)-1]
	}
	if weak {
		return "W/" + s
	}
	return s
}

// IsQuoted reports whether an ETag value is already quoted (with an
// optional leading weak marker).
func IsQuoted(etag string) bool {
	s := etag
	if strings.HasPrefix(s, "W/") {
		s = s[2:]
	}
	return len(s) >= 2 && s[0] == '"' && s[len(s)-1] == '"'
}

// ETagsEqual compares two ETag values for equality after unquoting both
// sides.
func ETagsEqual(a, b string) bool {
	return Unquote(a) == Unquote(b)
}

// TitleCase canonicalizes a header name to Title-Case on "-" boundaries
// (e.g. "www-authenticate" -> "WWW-Authenticate" is NOT produced by this
// generic rule — callers that need a non-generic canonical spelling like
// "WWW-Authenticate" or "ETag" should special-case it; TitleCase covers only
// the general rule).
func TitleCase(name string) string {
	segments := strings.Split(name, "-")
	for i, seg := range segments {
		if seg == "" {
			continue
		}
		segments[i] = strings.ToUpper(seg[:1]) + strings.ToLower(seg[1:])
	}
	return strings.Join(segments, "-")
}

// canonicalSpellings lists header names whose canonical spelling deviates
// from the plain Title-Case rule.
var canonicalSpellings = map[string]string{
	"etag":             "ETag",
	"www-authenticate": "WWW-Authenticate",
}

// Canonicalize returns the egress spelling of a header name: one of the
// explicit spellings above, or the generic Title-Case rule otherwise.
func Canonicalize(name string) string {
	if spelling, ok := canonicalSpellings[strings.ToLower(name)]; ok {
		return spelling
	}
	return TitleCase(name)
}

// MergeVary merges a resource-declared variance list with the engine's own
// negotiated-dimension header names, deduplicating and preserving order.
// The resource-supplied list is positioned first, with the engine's own
// entries appended after, then joined with ", ".
func MergeVary(resourceVariances, negotiated []string) string {
	seen := make(map[string]bool, len(resourceVariances)+len(negotiated))
	ordered := make([]string, 0, len(resourceVariances)+len(negotiated))
	for _, v := range resourceVariances {
		v = strings.ToLower(strings.TrimSpace(v))
		if v == "" || seen[v] {
			continue
		}
		seen[v] = true
		ordered = append(ordered, v)
	}
	for _, v := range negotiated {
		v = strings.ToLower(strings.TrimSpace(v))
		if v == "" || seen[v] {
			continue
		}
		seen[v] = true
		ordered = append(ordered, v)
	}
	return strings.Join(ordered, ", ")
}
