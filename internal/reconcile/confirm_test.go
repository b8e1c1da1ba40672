package reconcile

import (
	"strings"
	"testing"
)

func TestReaderConfirmer(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  bool
	}{
		{"exact yes", "yes\n", true},
		{"uppercase", "YES\n", true},
		{"mixed case", "Yes\n", true},
		{"surrounding whitespace", "  yes  \n", true},
		{"single y declines", "y\n", false},
		{"no", "No\n", false},
		{"empty line", "\n", false},
		{"empty stream", "", false},
		{"yes with trailing words", "yes please\n", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var out strings.Builder
			c := &ReaderConfirmer{In: strings.NewReader(tt.input), Out: &out}

			got, err := c.Confirm("Proceed? ")
			if err != nil {
				t.Fatalf("Confirm() error = %v", err)
			}
			if got != tt.want {
				t.Errorf("Confirm(%q) = %v, want %v", tt.input, got, tt.want)
			}
			if out.String() != "Proceed? " {
				t.Errorf("prompt = %q", out.String())
			}
		})
	}
}

func TestAutoConfirmer(t *testing.T) {
	ok, err := AutoConfirmer{}.Confirm("anything")
	if err != nil || !ok {
		t.Errorf("AutoConfirmer = (%v, %v), want (true, nil)", ok, err)
	}
}
