package util

import (
	"errors"
	"strings"
	"testing"
	"time"
)

func TestBackoffDoublesToMax(t *testing.T) {
	b := NewBackoff(time.Second, 5*time.Second)

	want := []time.Duration{time.Second, 2 * time.Second, 4 * time.Second, 5 * time.Second, 5 * time.Second}
	for i, w := range want {
		if got := b.Next(); got != w {
			t.Errorf("Next() #%d = %v, want %v", i, got, w)
		}
	}

	b.Reset()
	if got := b.Next(); got != time.Second {
		t.Errorf("Next() after Reset = %v, want 1s", got)
	}
}

func TestWrapError(t *testing.T) {
	base := errors.New("boom")
	wrapped := WrapError("open device", base)
	if !errors.Is(wrapped, base) {
		t.Error("wrapped error lost its cause")
	}
	if got := wrapped.Error(); got != "failed to open device: boom" {
		t.Errorf("message = %q", got)
	}

	if WrapError("anything", nil) != nil {
		t.Error("WrapError(nil) should be nil")
	}
}

func TestExtractLastError(t *testing.T) {
	tests := []struct {
		name   string
		stderr string
		want   string
	}{
		{"last line wins", "warning: something\nError: device busy\n", "Error: device busy"},
		{"skips trailing blanks", "real error\n\n  \n", "real error"},
		{"empty input", "", ""},
	}
	for _, tt := range tests {
		if got := ExtractLastError(tt.stderr); got != tt.want {
			t.Errorf("%s: got %q, want %q", tt.name, got, tt.want)
		}
	}

	long := strings.Repeat("x", 300)
	if got := ExtractLastError(long); len(got) != 203 || !strings.HasSuffix(got, "...") {
		t.Errorf("long line not truncated: len=%d", len(got))
	}
}

func TestIsConfigured(t *testing.T) {
	if !IsConfigured("a", "b") {
		t.Error("IsConfigured(a, b) = false")
	}
	if IsConfigured("a", "") {
		t.Error("IsConfigured with empty value = true")
	}
	if !IsConfigured() {
		t.Error("IsConfigured() = false")
	}
}

func TestValidatePath(t *testing.T) {
	if err := ValidatePath("dir", "recordings/site-a"); err != nil {
		t.Errorf("valid path rejected: %v", err)
	}
	if err := ValidatePath("dir", ""); err == nil {
		t.Error("empty path accepted")
	}
	if err := ValidatePath("dir", "../escape"); err == nil {
		t.Error("traversal path accepted")
	}
}

func TestCheckPathWritable(t *testing.T) {
	if err := CheckPathWritable(t.TempDir()); err != nil {
		t.Errorf("temp dir not writable: %v", err)
	}
}
