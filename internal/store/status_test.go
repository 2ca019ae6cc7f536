package store

import "testing"

func TestStatusRegisterDefaultsOffline(t *testing.T) {
	r := NewStatusRegister()
	if got := r.Get(); got.Status != "offline" || got.Timestamp == "" {
		t.Errorf("unexpected default status %+v", got)
	}
}

func TestStatusRegisterLastWriteWins(t *testing.T) {
	r := NewStatusRegister()

	if _, err := r.Set("listening", ""); err != nil {
		t.Fatal(err)
	}
	if _, err := r.Set("idle", "2025-03-05T10:00:00.000Z"); err != nil {
		t.Fatal(err)
	}

	got := r.Get()
	if got.Status != "idle" || got.Timestamp != "2025-03-05T10:00:00.000Z" {
		t.Errorf("expected idle with explicit timestamp, got %+v", got)
	}
}

func TestStatusRegisterRejectsEmpty(t *testing.T) {
	r := NewStatusRegister()
	r.Set("speaking", "")

	if _, err := r.Set("", ""); !IsValidation(err) {
		t.Errorf("expected validation error, got %v", err)
	}
	if got := r.Get(); got.Status != "speaking" {
		t.Errorf("rejected set must not change status, got %+v", got)
	}
}
