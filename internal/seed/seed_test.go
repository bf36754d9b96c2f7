package seed

import (
	"bytes"
	"fmt"
	"log/slog"
	"strings"
	"testing"
)

func TestGenerate(t *testing.T) {
	tests := []struct {
		name   string
		length int
		want   int
	}{
		{"default", 0, DefaultLength},
		{"negative", -3, DefaultLength},
		{"explicit", 25, 25},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, err := Generate(tt.length)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if len(s) != tt.want {
				t.Errorf("len = %d, want %d", len(s), tt.want)
			}
			for _, c := range string(s) {
				if !strings.ContainsRune(Alphabet, c) {
					t.Fatalf("unexpected character %q", c)
				}
			}
		})
	}

	a, _ := Generate(0)
	b, _ := Generate(0)
	if a == b {
		t.Errorf("two generated seeds are equal")
	}
}

func TestDerive(t *testing.T) {
	a, err := Derive("s1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	b, _ := Derive("s1")
	c, _ := Derive("s2")

	if !a.PublicKey.Equal(b.PublicKey) {
		t.Errorf("same seed produced different keys")
	}
	if a.PublicKey.Equal(c.PublicKey) {
		t.Errorf("different seeds produced the same key")
	}
	if len(a.KeyID()) != 64 {
		t.Errorf("KeyID length = %d, want 64", len(a.KeyID()))
	}

	if _, err := Derive(""); err != ErrEmptySeed {
		t.Errorf("expected ErrEmptySeed, got %v", err)
	}
}

func TestSeedRedacted(t *testing.T) {
	s := Seed("SECRETSEED")
	if got := fmt.Sprintf("%v", s); strings.Contains(got, "SECRET") {
		t.Errorf("fmt leaked seed: %s", got)
	}

	var buf bytes.Buffer
	slog.New(slog.NewJSONHandler(&buf, nil)).Info("bind", "seed", s)
	if strings.Contains(buf.String(), "SECRET") {
		t.Errorf("slog leaked seed: %s", buf.String())
	}
}
