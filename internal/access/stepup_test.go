package access

import (
	"testing"
	"time"
)

func TestClassifyKnownOperation(t *testing.T) {
	c := Classify("withdrawal", nil, nil)
	if c.RiskLevel != RiskHigh || !c.RequiresStepUp || c.GracePeriod != 0 {
		t.Fatalf("unexpected classification for withdrawal: %+v", c)
	}
}

func TestClassifyUnknownOperationDefaultsMedium(t *testing.T) {
	c := Classify("some:unlisted:op", nil, nil)
	if c.RiskLevel != RiskMedium || c.RequiresStepUp {
		t.Fatalf("unexpected default classification: %+v", c)
	}
}

func TestClassifyHighValueEscalatesToHigh(t *testing.T) {
	value := 15000.0
	c := Classify("gigs:create", &value, nil)
	if c.RiskLevel != RiskHigh || !c.RequiresStepUp {
		t.Fatalf("expected value > $10k to escalate to high risk: %+v", c)
	}
}

func TestClassifyVeryHighValueRequiresHardware(t *testing.T) {
	value := 150000.0
	c := Classify("gigs:create", &value, nil)
	if c.RiskLevel != RiskCritical || !c.RequiresHardware {
		t.Fatalf("expected value > $100k to require hardware step-up: %+v", c)
	}
}

func TestClassifyHighRiskScoreZeroesGracePeriod(t *testing.T) {
	score := 80
	c := Classify("gigs:create", nil, &score)
	if !c.RequiresStepUp || c.GracePeriod != 0 {
		t.Fatalf("expected risk score > 70 to require step-up with no grace period: %+v", c)
	}
}

func TestGraceTrackerHonorsWindow(t *testing.T) {
	g := NewGraceTracker()
	g.RegisterCompletion("0xWallet", "withdrawal", MethodWalletSignature, 50*time.Millisecond)

	if !g.HasRecentStepUp("0xwallet", "withdrawal") {
		t.Fatal("expected step-up to be recognized immediately (case-insensitive wallet)")
	}

	time.Sleep(80 * time.Millisecond)
	if g.HasRecentStepUp("0xWallet", "withdrawal") {
		t.Fatal("expected step-up grace period to have expired")
	}
}

func TestGraceTrackerAdminGrantsAllOperations(t *testing.T) {
	g := NewGraceTracker()
	g.RegisterCompletion("0xWallet", "admin", MethodHardwareWallet, time.Minute)

	if !g.HasRecentStepUp("0xWallet", "admin:user_delete") {
		t.Fatal("expected an 'admin' step-up to cover any operation")
	}
}
