package server

import (
	"path/filepath"
	"strings"
	"testing"

	"github.com/jamesainslie/triage/pkg/session"
)

func TestSignerRoundTrip(t *testing.T) {
	s, generated, err := newSigner("secret")
	if err != nil {
		t.Fatalf("newSigner() error = %v", err)
	}
	if generated {
		t.Error("generated = true for explicit secret")
	}

	id := session.NewID()
	got, ok := s.verify(s.sign(id))
	if !ok || got != id {
		t.Fatalf("verify(sign(id)) = %q, %v", got, ok)
	}
}

func TestSignerRejectsTampering(t *testing.T) {
	s, _, _ := newSigner("secret")
	other, _, _ := newSigner("other")
	id := session.NewID()
	signed := s.sign(id)

	cases := map[string]string{
		"empty":         "",
		"no signature":  id,
		"wrong secret":  other.sign(id),
		"swapped id":    session.NewID() + signed[strings.LastIndexByte(signed, '.'):],
		"not a uuid":    s.sign("../../etc"),
		"truncated mac": signed[:len(signed)-2],
		"leading dot":   "." + s.mac(""),
	}
	for name, value := range cases {
		if _, ok := s.verify(value); ok {
			t.Errorf("%s: verify(%q) accepted", name, value)
		}
	}
}

func TestGeneratedSecretsDiffer(t *testing.T) {
	a, generated, err := newSigner("")
	if err != nil {
		t.Fatalf("newSigner() error = %v", err)
	}
	if !generated {
		t.Error("generated = false for empty secret")
	}
	b, _, _ := newSigner("")
	id := session.NewID()
	if a.sign(id) == b.sign(id) {
		t.Error("two generated secrets produced the same signature")
	}
}

func TestWithin(t *testing.T) {
	root := filepath.FromSlash("/data/photos")
	tests := []struct {
		path string
		want bool
	}{
		{"/data/photos/a.jpg", true},
		{"/data/photos/cats/a.jpg", true},
		{"/data/photos", false},
		{"/data/photos/../other/a.jpg", false},
		{"/data/photos-old/a.jpg", false},
		{"a.jpg", false},
		{"/data/photos/..foo.jpg", true},
	}
	for _, tt := range tests {
		if got := within(root, filepath.FromSlash(tt.path)); got != tt.want {
			t.Errorf("within(%q) = %v, want %v", tt.path, got, tt.want)
		}
	}
}
