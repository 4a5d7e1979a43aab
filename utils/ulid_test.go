package utils

import (
	"testing"
	"time"
)

func TestNewRunIDIsUnique(t *testing.T) {
	a := NewRunID()
	b := NewRunID()

	if a.String() == b.String() {
		t.Error("two run IDs generated back to back should differ")
	}
	if len(a.String()) != 26 {
		t.Errorf("run ID should be 26 characters, got %d", len(a.String()))
	}
}

func TestNewRunIDString(t *testing.T) {
	s := NewRunIDString()
	if len(s) != 26 {
		t.Errorf("run ID string should be 26 characters, got %d", len(s))
	}
}

func TestNewRunIDAtIsMonotonicWithinSameTimestamp(t *testing.T) {
	now := time.Now()
	a := NewRunIDAt(now)
	b := NewRunIDAt(now)

	if a.String() == b.String() {
		t.Error("two run IDs minted at the same timestamp should still differ")
	}
	if a.Compare(b) >= 0 {
		t.Error("a run ID minted later at the same timestamp should sort after the earlier one")
	}
	if a.Time() != b.Time() {
		t.Error("run IDs minted with the same time should carry the same timestamp component")
	}
}

func TestParseRunIDRoundTrip(t *testing.T) {
	original := NewRunID()

	parsed, err := ParseRunID(original.String())
	if err != nil {
		t.Fatalf("failed to parse run ID: %v", err)
	}
	if original.String() != parsed.String() {
		t.Error("parsed run ID should match the original")
	}
}

func TestMustParseRunID(t *testing.T) {
	original := NewRunID()
	parsed := MustParseRunID(original.String())

	if original.String() != parsed.String() {
		t.Error("parsed run ID should match the original")
	}
}
