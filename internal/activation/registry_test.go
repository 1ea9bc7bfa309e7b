package activation

import (
	"sync"
	"testing"
)

func TestRegistryDefaultsInactive(t *testing.T) {
	r := NewRegistry()
	if r.IsActive("15551234567") {
		t.Error("expected unknown identity to be inactive")
	}
}

func TestRegistryToggle(t *testing.T) {
	r := NewRegistry()
	r.SetActive("15551234567", true)
	if !r.IsActive("15551234567") {
		t.Error("expected identity to be active after SetActive(true)")
	}
	r.SetActive("15551234567", false)
	if r.IsActive("15551234567") {
		t.Error("expected identity to be inactive after SetActive(false)")
	}
}

func TestRegistrySetActiveIdempotent(t *testing.T) {
	r := NewRegistry()
	r.SetActive("15551234567", true)
	r.SetActive("15551234567", true)
	if !r.IsActive("15551234567") {
		t.Error("expected identity to remain active after repeated SetActive(true)")
	}
	r.SetActive("15557654321", false)
	if r.IsActive("15557654321") {
		t.Error("expected deactivating an unknown identity to be a no-op")
	}
	got := r.Snapshot()
	if len(got) != 1 || got[0] != "15551234567" {
		t.Errorf("Snapshot() = %v, want [15551234567]", got)
	}
}

func TestRegistryConcurrentToggles(t *testing.T) {
	r := NewRegistry()
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			r.SetActive("15551234567", true)
		}()
		go func() {
			defer wg.Done()
			r.IsActive("15551234567")
		}()
	}
	wg.Wait()
	if !r.IsActive("15551234567") {
		t.Error("expected identity to be active after concurrent activations")
	}
}
