package models

import "testing"

func TestNormalizeBranch(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{"trims and lowercases", "  Centro SP  ", "centro sp"},
		{"already normalized", "vila mariana", "vila mariana"},
		{"empty maps to sentinel", "", UnknownBranch},
		{"whitespace only maps to sentinel", "   \t ", UnknownBranch},
		{"mixed case", "LOJA Matriz", "loja matriz"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := NormalizeBranch(tt.input); got != tt.expected {
				t.Errorf("NormalizeBranch(%q) = %q, want %q", tt.input, got, tt.expected)
			}
		})
	}
}

func TestNormalizeProductID(t *testing.T) {
	tests := []struct {
		name      string
		input     string
		expected  string
		expectOK  bool
	}{
		{"plain isbn", "9788512345678", "9788512345678", true},
		{"float serialization artifact", "9788512345678.0", "9788512345678", true},
		{"hyphenated isbn", "978-85-123-4567-8", "9788512345678", true},
		{"surrounding whitespace", "  9788512345678  ", "9788512345678", true},
		{"exactly eight digits", "12345678", "12345678", true},
		{"seven digits invalid", "1234567", "", false},
		{"letters only invalid", "abcdefgh", "", false},
		{"empty invalid", "", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := NormalizeProductID(tt.input)
			if ok != tt.expectOK {
				t.Fatalf("NormalizeProductID(%q) ok = %v, want %v", tt.input, ok, tt.expectOK)
			}
			if got != tt.expected {
				t.Errorf("NormalizeProductID(%q) = %q, want %q", tt.input, got, tt.expected)
			}
		})
	}
}

func TestNormalizeProductIDIdempotent(t *testing.T) {
	inputs := []string{"9788512345678", "978-85-123-4567-8.0", "  12345678 ", "garbage", "123"}

	for _, input := range inputs {
		first, ok := NormalizeProductID(input)
		if !ok {
			continue
		}
		second, ok := NormalizeProductID(first)
		if !ok {
			t.Errorf("normalized id %q became invalid on second pass", first)
			continue
		}
		if first != second {
			t.Errorf("NormalizeProductID not idempotent for %q: %q != %q", input, first, second)
		}
	}
}

func TestNormalizeKey(t *testing.T) {
	key, ok := NormalizeKey(" Centro ", "978-85-123-4567-8")
	if !ok {
		t.Fatal("expected valid key")
	}
	if key.Branch != "centro" || key.ProductID != "9788512345678" {
		t.Errorf("unexpected key: %+v", key)
	}

	if _, ok := NormalizeKey("centro", "123"); ok {
		t.Error("expected invalid key for short product id")
	}
}

func TestParsePromoSet(t *testing.T) {
	set := ParsePromoSet("9788512345678, 978-85-000-1111-0;\n12345678 garbage 123")

	expected := []string{"9788512345678", "9788500011110", "12345678"}
	if len(set) != len(expected) {
		t.Fatalf("expected %d entries, got %d: %v", len(expected), len(set), set)
	}
	for _, id := range expected {
		if _, ok := set[id]; !ok {
			t.Errorf("expected %q in promo set", id)
		}
	}
}
