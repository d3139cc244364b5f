package models

import (
	"context"
	"errors"
	"testing"
)

func TestStaticManagerList(t *testing.T) {
	m := NewStaticManager([]string{"a", "b"})
	got, err := m.List(context.Background())
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(got) != 2 || got[0] != "a" {
		t.Errorf("List = %v", got)
	}

	// returned slice must not alias internal state
	got[0] = "mutated"
	again, _ := m.List(context.Background())
	if again[0] != "a" {
		t.Error("List result aliases internal slice")
	}
}

func TestStaticManagerHealthy(t *testing.T) {
	m := NewStaticManager([]string{"a"})
	if err := m.Healthy(context.Background(), "a"); err != nil {
		t.Errorf("Healthy(a) = %v", err)
	}
	if err := m.Healthy(context.Background(), "zzz"); !errors.Is(err, ErrUnknownModel) {
		t.Errorf("Healthy(zzz) = %v, want ErrUnknownModel", err)
	}
}
