// Package access implements scope/audience validation and
// step-up (re-authentication) enforcement for sensitive operations.
package access

import "strings"

// ValidateScope reports whether tokenScopes (a space-separated list)
// satisfies required, under these implication rules:
//  1. Direct match.
//  2. A parent scope ("gigs") implies any child ("gigs:read", "gigs:write").
//  3. A wildcard "resource:*" implies any action on that resource.
//  4. "admin" implies all scopes.
//  5. Otherwise, deny.
func ValidateScope(tokenScopes, required string) bool {
	granted := strings.Fields(tokenScopes)
	for _, g := range granted {
		if scopeImplies(g, required) {
			return true
		}
	}
	return false
}

func scopeImplies(granted, required string) bool {
	if granted == "admin" {
		return true
	}
	if granted == required {
		return true
	}

	resource, _, hasAction := strings.Cut(required, ":")
	if !hasAction {
		return false
	}

	if granted == resource {
		return true // parent scope implies any child action
	}
	if gResource, gAction, ok := strings.Cut(granted, ":"); ok && gAction == "*" && gResource == resource {
		return true // resource:* implies any action on resource
	}
	return false
}

// ValidateAudience reports whether the service identifier appears in
// aud. A JWT aud claim may be a single string or a list; the token
// layer normalizes a single-string claim to a one-element slice before
// it reaches here.
func ValidateAudience(aud []string, serviceID string) bool {
	for _, a := range aud {
		if a == serviceID {
			return true
		}
	}
	return false
}
