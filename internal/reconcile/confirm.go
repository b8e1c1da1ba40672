package reconcile

import (
	"bufio"
	"fmt"
	"io"
	"strings"
)

// affirmative is the only token that confirms a destructive pass.
const affirmative = "yes"

// ReaderConfirmer prompts on w and reads one line from r. Only the exact
// token "yes" (case-insensitive, surrounding whitespace ignored) confirms;
// anything else, including EOF on an empty stream, declines.
type ReaderConfirmer struct {
	In  io.Reader
	Out io.Writer
}

// Confirm implements Confirmer.
func (c *ReaderConfirmer) Confirm(prompt string) (bool, error) {
	if _, err := fmt.Fprint(c.Out, prompt); err != nil {
		return false, err
	}

	reader := bufio.NewReader(c.In)
	line, err := reader.ReadString('\n')
	if err != nil && err != io.EOF {
		return false, fmt.Errorf("read confirmation: %w", err)
	}

	return strings.EqualFold(strings.TrimSpace(line), affirmative), nil
}

// AutoConfirmer answers every prompt without asking. Used by --force.
type AutoConfirmer struct{}

// Confirm implements Confirmer.
func (AutoConfirmer) Confirm(string) (bool, error) { return true, nil }
