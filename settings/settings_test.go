package settings

import (
	"errors"
	"testing"
)

type sample struct {
	Scale float64         `json:"scale"`
	Show  bool            `json:"show"`
	Seen  map[string]bool `json:"seen"`
}

func TestMemoryStoreGetSet(t *testing.T) {
	s := NewMemoryStore()

	if _, ok, err := s.Get("missing"); err != nil || ok {
		t.Fatalf("Get(missing) = ok %v, err %v; want false, nil", ok, err)
	}

	if err := s.Set("k", []byte("v1")); err != nil {
		t.Fatalf("Set: %v", err)
	}
	got, ok, err := s.Get("k")
	if err != nil || !ok || string(got) != "v1" {
		t.Fatalf("Get(k) = %q, %v, %v; want v1, true, nil", got, ok, err)
	}

	// Returned slices are copies.
	got[0] = 'x'
	again, _, _ := s.Get("k")
	if string(again) != "v1" {
		t.Errorf("stored value mutated through returned slice: %q", again)
	}
}

func TestMemoryStoreEmptyKey(t *testing.T) {
	s := NewMemoryStore()
	if err := s.Set("", nil); !errors.Is(err, ErrEmptyKey) {
		t.Errorf("Set(\"\") err = %v, want ErrEmptyKey", err)
	}
	if _, _, err := s.Get(""); !errors.Is(err, ErrEmptyKey) {
		t.Errorf("Get(\"\") err = %v, want ErrEmptyKey", err)
	}
}

func TestSaveJSONFlushes(t *testing.T) {
	s := NewMemoryStore()
	if err := SaveJSON(s, "w1", sample{Scale: 2, Show: true}); err != nil {
		t.Fatalf("SaveJSON: %v", err)
	}
	if s.Flushes() != 1 {
		t.Errorf("Flushes = %d, want 1", s.Flushes())
	}
}

func TestLoadJSONMissingKeepsDefaults(t *testing.T) {
	s := NewMemoryStore()
	v := sample{Scale: 1, Show: true}
	found, err := LoadJSON(s, "w1", &v)
	if err != nil {
		t.Fatalf("LoadJSON: %v", err)
	}
	if found {
		t.Error("found = true for missing key")
	}
	if v.Scale != 1 || !v.Show {
		t.Errorf("defaults changed: %+v", v)
	}
}

func TestLoadJSONPartialKeepsDefaults(t *testing.T) {
	s := NewMemoryStore()
	if err := s.Set("w1", []byte(`{"scale": 3}`)); err != nil {
		t.Fatal(err)
	}
	v := sample{Scale: 1, Show: true}
	found, err := LoadJSON(s, "w1", &v)
	if err != nil || !found {
		t.Fatalf("LoadJSON = %v, %v", found, err)
	}
	if v.Scale != 3 {
		t.Errorf("Scale = %v, want 3", v.Scale)
	}
	if !v.Show {
		t.Error("Show default lost on partial document")
	}
}

func TestLoadJSONCorrupt(t *testing.T) {
	s := NewMemoryStore()
	if err := s.Set("w1", []byte(`{not json`)); err != nil {
		t.Fatal(err)
	}
	var v sample
	if _, err := LoadJSON(s, "w1", &v); err == nil {
		t.Error("expected decode error")
	}
}
