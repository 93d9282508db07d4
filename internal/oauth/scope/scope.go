// Package scope implements parsing and matching of OAuth scope strings,
// including the wildcard forms "*" (all scopes) and "files:*" (all scopes in
// the files namespace).
package scope

import "strings"

// Wildcard grants every scope when present in a client's allowed set or an
// access token's granted set.
const Wildcard = "*"

// Parse splits a space-delimited scope string into individual scopes.
// Empty entries from repeated whitespace are dropped.
func Parse(s string) []string {
	return strings.Fields(s)
}

// Join renders a scope list back to its wire form.
func Join(scopes []string) string {
	return strings.Join(scopes, " ")
}

// Narrow reduces the requested scopes to what the client may hold.
//
// A client whose allowed set contains the wildcard keeps the requested set
// verbatim. Otherwise the result is the intersection, ordered by the server's
// allowed set rather than the client's request. Unknown or disallowed scopes
// are dropped silently; an empty result is valid.
func Narrow(requested, allowed []string) []string {
	for _, a := range allowed {
		if a == Wildcard {
			return requested
		}
	}

	requestedSet := make(map[string]struct{}, len(requested))
	for _, r := range requested {
		requestedSet[r] = struct{}{}
	}

	granted := make([]string, 0, len(requested))
	for _, a := range allowed {
		if _, ok := requestedSet[a]; ok {
			granted = append(granted, a)
		}
	}
	return granted
}

// Satisfies reports whether granted scopes cover the required scope. A granted
// wildcard covers everything; a granted namespace wildcard ("files:*") covers
// any scope in that namespace ("files:read").
func Satisfies(granted []string, required string) bool {
	for _, g := range granted {
		if g == Wildcard || g == required {
			return true
		}
	}
	if ns, _, ok := strings.Cut(required, ":"); ok {
		nsWildcard := ns + ":" + Wildcard
		for _, g := range granted {
			if g == nsWildcard {
				return true
			}
		}
	}
	return false
}

// SatisfiesAny reports whether granted scopes cover at least one of the
// required scopes. An empty required list is trivially satisfied.
func SatisfiesAny(granted []string, required ...string) bool {
	if len(required) == 0 {
		return true
	}
	for _, r := range required {
		if Satisfies(granted, r) {
			return true
		}
	}
	return false
}

// Subset reports whether every scope in child also appears in parent. Used to
// enforce that rotation never escalates a refresh token's grant.
func Subset(child, parent []string) bool {
	parentSet := make(map[string]struct{}, len(parent))
	for _, p := range parent {
		parentSet[p] = struct{}{}
	}
	for _, c := range child {
		if _, ok := parentSet[c]; !ok {
			return false
		}
	}
	return true
}
