package message

import "testing"

func TestNewAssignsIDWhenEmpty(t *testing.T) {
	m := New([]any{1, 2, 3}, "", "ex", "rk", nil)
	if m.ID == "" {
		t.Fatal("expected a generated id, got empty string")
	}
}

func TestNewKeepsGivenID(t *testing.T) {
	m := New("v", "m1", "", "", nil)
	if m.ID != "m1" {
		t.Fatalf("ID = %q, want %q", m.ID, "m1")
	}
}

func TestEnsureIDOnlyFillsEmpty(t *testing.T) {
	m := &Message{ID: "keep-me"}
	m.EnsureID()
	if m.ID != "keep-me" {
		t.Fatalf("EnsureID overwrote an existing id: got %q", m.ID)
	}

	m2 := &Message{}
	m2.EnsureID()
	if m2.ID == "" {
		t.Fatal("EnsureID left ID empty")
	}
}

func TestCloneIsIndependent(t *testing.T) {
	m := New("v", "m1", "ex", "rk", Properties{"content_type": "text/plain"})
	cp := m.Clone()

	cp.Value = "changed"
	if m.Value == "changed" {
		t.Fatal("mutating the clone's Value mutated the original")
	}
	if cp.ID != m.ID {
		t.Fatalf("clone id = %q, want %q", cp.ID, m.ID)
	}
}
