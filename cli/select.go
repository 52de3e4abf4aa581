package cli

import (
	"errors"
	"os"
	"strings"

	"github.com/manifoldco/promptui"
	"golang.org/x/term"
)

// ErrNoChoices is returned when there is nothing to select from.
var ErrNoChoices = errors.New("nothing to select from")

// IsInteractive reports whether both stdin and stdout are terminals.
func IsInteractive() bool {
	return term.IsTerminal(int(os.Stdin.Fd())) && term.IsTerminal(int(os.Stdout.Fd())) //nolint:gosec
}

// SelectOne asks the user to pick one of choices. Typing filters the list by
// case insensitive prefix.
func SelectOne(label string, choices ...string) (string, error) {
	if len(choices) == 0 {
		return "", ErrNoChoices
	}

	sel := &promptui.Select{
		Label:    label,
		Items:    choices,
		Size:     min(len(choices), maxVisibleChoices),
		Searcher: prefixSearcher(choices),
		Stdin:    os.Stdin,
		Stdout:   os.Stdout,
	}

	_, value, err := sel.Run()
	if err != nil {
		return "", err
	}

	return value, nil
}

const maxVisibleChoices = 10

func prefixSearcher(choices []string) func(input string, index int) bool {
	return func(input string, index int) bool {
		if input == "" {
			return true
		}

		return strings.HasPrefix(strings.ToLower(choices[index]), strings.ToLower(input))
	}
}
