package entity

import "testing"

func TestGenerateCode(t *testing.T) {
	seen := make(map[string]bool)

	for range 200 {
		code, err := GenerateCode()
		if err != nil {
			t.Fatalf("GenerateCode() error = %v", err)
		}

		if len(code) != CodeLength {
			t.Fatalf("len(%q) = %d, want %d", code, len(code), CodeLength)
		}
		for _, r := range code {
			if r < '0' || r > '9' {
				t.Fatalf("code %q contains non-digit %q", code, r)
			}
		}

		seen[code] = true
	}

	// 200 draws from a 10k space collapsing to a handful of values would
	// mean the generator is broken.
	if len(seen) < 50 {
		t.Fatalf("only %d distinct codes in 200 draws", len(seen))
	}
}
