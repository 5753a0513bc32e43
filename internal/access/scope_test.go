package access

import "testing"

func TestValidateScopeDirectMatch(t *testing.T) {
	if !ValidateScope("gigs:read profile", "gigs:read") {
		t.Fatal("expected direct scope match to succeed")
	}
}

func TestValidateScopeParentImpliesChildren(t *testing.T) {
	if !ValidateScope("gigs", "gigs:read") {
		t.Fatal("expected parent scope 'gigs' to imply 'gigs:read'")
	}
	if !ValidateScope("gigs", "gigs:write") {
		t.Fatal("expected parent scope 'gigs' to imply 'gigs:write'")
	}
}

func TestValidateScopeWildcardImpliesAnyAction(t *testing.T) {
	if !ValidateScope("contracts:*", "contracts:execute") {
		t.Fatal("expected 'contracts:*' to imply 'contracts:execute'")
	}
}

func TestValidateScopeAdminImpliesEverything(t *testing.T) {
	if !ValidateScope("admin", "anything:goes") {
		t.Fatal("expected 'admin' to imply any scope")
	}
}

func TestValidateScopeDenyUnrelated(t *testing.T) {
	if ValidateScope("gigs:read", "contracts:write") {
		t.Fatal("expected unrelated scope to be denied")
	}
}

func TestValidateAudience(t *testing.T) {
	if !ValidateAudience([]string{"gigchain-api", "gigchain-admin"}, "gigchain-api") {
		t.Fatal("expected audience match to succeed")
	}
	if ValidateAudience([]string{"other-service"}, "gigchain-api") {
		t.Fatal("expected audience mismatch to fail")
	}
}
