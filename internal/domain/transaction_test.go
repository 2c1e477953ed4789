package domain

import "testing"

func TestCoerceCategory(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"canonical", "Groceries", "Groceries"},
		{"lowercase", "groceries", "Groceries"},
		{"mixed case", "fOoD & DiNiNg", "Food & Dining"},
		{"surrounding whitespace", "  Income ", "Income"},
		{"unknown", "Cryptocurrency", CategoryOther},
		{"empty", "", CategoryOther},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := CoerceCategory(tt.in); got != tt.want {
				t.Errorf("CoerceCategory(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestValidCategory(t *testing.T) {
	for _, c := range Categories {
		if !ValidCategory(c) {
			t.Errorf("ValidCategory(%q) = false, want true", c)
		}
	}
	if ValidCategory("Misc") {
		t.Error("ValidCategory(Misc) = true, want false")
	}
}
