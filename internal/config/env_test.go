package config

import (
	"testing"
	"time"
)

func TestParseEnvFloat(t *testing.T) {
	dest := 0.95
	if err := ParseEnvFloat("TRIAGE_TEST_FLOAT", &dest); err != nil {
		t.Fatalf("unset variable should not error: %v", err)
	}
	if dest != 0.95 {
		t.Errorf("unset variable should leave default, got %v", dest)
	}

	t.Setenv("TRIAGE_TEST_FLOAT", "0.5")
	if err := ParseEnvFloat("TRIAGE_TEST_FLOAT", &dest); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if dest != 0.5 {
		t.Errorf("expected 0.5, got %v", dest)
	}

	t.Setenv("TRIAGE_TEST_FLOAT", "abc")
	if err := ParseEnvFloat("TRIAGE_TEST_FLOAT", &dest); err == nil {
		t.Error("expected error for non-numeric value")
	}
}

func TestParseEnvInt(t *testing.T) {
	dest := 100
	t.Setenv("TRIAGE_TEST_INT", "25")
	if err := ParseEnvInt("TRIAGE_TEST_INT", &dest); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if dest != 25 {
		t.Errorf("expected 25, got %d", dest)
	}

	t.Setenv("TRIAGE_TEST_INT", "1.5")
	if err := ParseEnvInt("TRIAGE_TEST_INT", &dest); err == nil {
		t.Error("expected error for non-integer value")
	}
}

func TestParseEnvBool(t *testing.T) {
	dest := false
	t.Setenv("TRIAGE_TEST_BOOL", "true")
	if err := ParseEnvBool("TRIAGE_TEST_BOOL", &dest); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !dest {
		t.Error("expected true")
	}

	t.Setenv("TRIAGE_TEST_BOOL", "yes")
	if err := ParseEnvBool("TRIAGE_TEST_BOOL", &dest); err == nil {
		t.Error("expected error for non-boolean value")
	}
}

func TestParseEnvDuration(t *testing.T) {
	dest := 10 * time.Second
	t.Setenv("TRIAGE_TEST_DURATION", "7")
	if err := ParseEnvDuration("TRIAGE_TEST_DURATION", &dest, 24*time.Hour); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if dest != 7*24*time.Hour {
		t.Errorf("expected 7 days, got %v", dest)
	}
}

func TestParseEnvString(t *testing.T) {
	dest := "pending"
	ParseEnvString("TRIAGE_TEST_STRING", &dest)
	if dest != "pending" {
		t.Errorf("unset variable should leave default, got %q", dest)
	}

	t.Setenv("TRIAGE_TEST_STRING", "retry")
	ParseEnvString("TRIAGE_TEST_STRING", &dest)
	if dest != "retry" {
		t.Errorf("expected retry, got %q", dest)
	}
}
