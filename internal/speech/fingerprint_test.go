package speech

import "testing"

func TestNewFingerprintTrimsText(t *testing.T) {
	a := NewFingerprint("  Hello world \n", "v", 1, 1, "en-US")
	b := NewFingerprint("Hello world", "v", 1, 1, "en-US")
	if a != b {
		t.Errorf("trimmed and untrimmed text must fingerprint equally: %+v vs %+v", a, b)
	}
	if a.Text != "Hello world" {
		t.Errorf("inner whitespace must survive, got %q", a.Text)
	}
}

func TestNewFingerprintExactValues(t *testing.T) {
	base := NewFingerprint("hi", "v", 1.0, 1.0, "en-US")
	variants := []Fingerprint{
		NewFingerprint("hi", "v", 1.0000001, 1.0, "en-US"),
		NewFingerprint("hi", "v", 1.0, 0.9999999, "en-US"),
		NewFingerprint("hi", "w", 1.0, 1.0, "en-US"),
		NewFingerprint("hi", "v", 1.0, 1.0, "da-DK"),
		NewFingerprint("hi there", "v", 1.0, 1.0, "en-US"),
	}
	for i, v := range variants {
		if v == base {
			t.Errorf("variant %d must not equal base: %+v", i, v)
		}
	}
	if base != NewFingerprint("hi", "v", 1.0, 1.0, "en-US") {
		t.Error("identical inputs must fingerprint equally")
	}
}
