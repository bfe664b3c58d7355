package sqlqueue

import (
	"errors"
	"testing"
)

func TestParseName(t *testing.T) {
	valid := map[string]int{"orders": 1, "public.orders": 2, "ORDERS_1": 1, "_q": 1}
	for name, parts := range valid {
		got, err := ParseName(name)
		if err != nil {
			t.Fatalf("expected valid name %q: %v", name, err)
		}
		if len(got) != parts {
			t.Fatalf("expected %d parts for %q, got %d", parts, name, len(got))
		}
	}

	invalid := []string{"orders;drop", "orders-1", "public..orders", "public.orders;", "1orders", "or ders"}
	for _, name := range invalid {
		if _, err := ParseName(name); !errors.Is(err, ErrInvalidName) {
			t.Fatalf("expected invalid name %q, got %v", name, err)
		}
	}

	if _, err := ParseName(""); !errors.Is(err, ErrNameRequired) {
		t.Fatalf("expected ErrNameRequired, got %v", err)
	}
}
