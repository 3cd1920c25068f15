package utils

import (
	"strings"
	"testing"
)

func never(string) (bool, error) { return false, nil }

func TestRandomString(t *testing.T) {
	tests := []struct {
		name   string
		length int
	}{
		{"Length 6", 6},
		{"Length 8", 8},
		{"Length 1", 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := randomString(tt.length)
			if err != nil {
				t.Fatalf("randomString() error = %v", err)
			}
			if len(result) != tt.length {
				t.Errorf("randomString() length = %v, want %v", len(result), tt.length)
			}
			for _, ch := range result {
				if !strings.ContainsRune(shortPathCharset, ch) {
					t.Errorf("Invalid character %c in generated string", ch)
				}
			}
		})
	}
}

func TestGenerateShortPath_NoBase(t *testing.T) {
	path, err := GenerateShortPath("", never)
	if err != nil {
		t.Fatalf("GenerateShortPath() error = %v", err)
	}
	if len(path) != ShortPathLength {
		t.Errorf("GenerateShortPath() length = %d, want %d", len(path), ShortPathLength)
	}
}

func TestGenerateShortPath_BaseFree(t *testing.T) {
	path, err := GenerateShortPath("my-link", never)
	if err != nil {
		t.Fatalf("GenerateShortPath() error = %v", err)
	}
	if path != "my-link" {
		t.Errorf("GenerateShortPath() = %q, want the base unmodified", path)
	}
}

func TestGenerateShortPath_BaseTaken(t *testing.T) {
	taken := func(candidate string) (bool, error) {
		return candidate == "abc", nil
	}

	path, err := GenerateShortPath("abc", taken)
	if err != nil {
		t.Fatalf("GenerateShortPath() error = %v", err)
	}
	if !strings.HasPrefix(path, "abc") {
		t.Errorf("GenerateShortPath() = %q, want prefix %q", path, "abc")
	}
	if len(path) <= len("abc") {
		t.Errorf("GenerateShortPath() = %q, want strictly longer than the base", path)
	}
	if len(path) != len("abc")+ShortPathLength {
		t.Errorf("GenerateShortPath() length = %d, want %d", len(path), len("abc")+ShortPathLength)
	}
}

func TestGenerateShortPath_RetriesSuffixes(t *testing.T) {
	// Reject the base and the first two suffixed candidates.
	rejected := 0
	taken := func(candidate string) (bool, error) {
		if candidate == "abc" || rejected < 2 {
			if candidate != "abc" {
				rejected++
			}
			return true, nil
		}
		return false, nil
	}

	path, err := GenerateShortPath("abc", taken)
	if err != nil {
		t.Fatalf("GenerateShortPath() error = %v", err)
	}
	if !strings.HasPrefix(path, "abc") || path == "abc" {
		t.Errorf("GenerateShortPath() = %q, want a suffixed candidate", path)
	}
}

func TestGenerateShortPath_AttemptCap(t *testing.T) {
	everything := func(string) (bool, error) { return true, nil }

	_, err := GenerateShortPath("", everything)
	if err != ErrMaxSlugAttempts {
		t.Errorf("GenerateShortPath() error = %v, want ErrMaxSlugAttempts", err)
	}
}

func TestGenerateShortPath_Uniqueness(t *testing.T) {
	generated := make(map[string]bool)
	for i := 0; i < 100; i++ {
		path, err := GenerateShortPath("", never)
		if err != nil {
			t.Fatalf("GenerateShortPath() error = %v", err)
		}
		if generated[path] {
			t.Errorf("Duplicate short path generated: %s", path)
		}
		generated[path] = true
	}
}
