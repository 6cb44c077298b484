package ids

import "testing"

func TestNewIsSortableAndUnique(t *testing.T) {
	seen := make(map[string]bool)
	var prev string
	for i := 0; i < 100; i++ {
		id := New()
		if seen[id] {
			t.Fatalf("duplicate id: %s", id)
		}
		seen[id] = true
		if prev != "" && id <= prev {
			t.Fatalf("ids not monotonically increasing: %s after %s", id, prev)
		}
		prev = id
	}
}

func TestValid(t *testing.T) {
	if !Valid(New()) {
		t.Fatal("expected generated id to validate")
	}
	for _, bad := range []string{"", "not-an-id", "user@staffhub.org", "0000"} {
		if Valid(bad) {
			t.Fatalf("expected %q to be invalid", bad)
		}
	}
}
