package app

import (
	"errors"
	"fmt"
	"io"
	"os"

	"golang.org/x/term"

	"datatime/internal/encryption"
)

// PassphraseEnv is consulted before prompting for an identity passphrase.
const PassphraseEnv = "DATATIME_PASSPHRASE"

// ttyPath is the controlling terminal. Standard input may be carrying body
// data, so prompts never read from it.
var ttyPath = "/dev/tty"

// TerminalPassphrase returns a PassphraseFunc that uses $DATATIME_PASSPHRASE
// when set and otherwise prompts on the controlling terminal.
func TerminalPassphrase(prompt io.Writer) encryption.PassphraseFunc {
	return func() (string, error) {
		if p := os.Getenv(PassphraseEnv); p != "" {
			return p, nil
		}
		return readPassword(prompt, "Identity passphrase: ")
	}
}

// NewPassphrase obtains the passphrase for a freshly generated identity,
// asking twice when prompting.
func NewPassphrase(prompt io.Writer) (string, error) {
	if p := os.Getenv(PassphraseEnv); p != "" {
		return p, nil
	}

	first, err := readPassword(prompt, "New identity passphrase: ")
	if err != nil {
		return "", err
	}
	if first == "" {
		return "", errors.New("passphrase must not be empty")
	}
	second, err := readPassword(prompt, "Confirm passphrase: ")
	if err != nil {
		return "", err
	}
	if first != second {
		return "", errors.New("passphrases do not match")
	}
	return first, nil
}

func readPassword(prompt io.Writer, label string) (string, error) {
	tty, err := os.Open(ttyPath)
	if err != nil {
		return "", fmt.Errorf("no terminal for passphrase prompt (set %s): %w", PassphraseEnv, err)
	}
	defer tty.Close()

	fd := int(tty.Fd())
	if !term.IsTerminal(fd) {
		return "", fmt.Errorf("%s is not a terminal (set %s)", ttyPath, PassphraseEnv)
	}

	fmt.Fprint(prompt, label)
	pass, err := term.ReadPassword(fd)
	fmt.Fprintln(prompt)
	if err != nil {
		return "", fmt.Errorf("reading passphrase: %w", err)
	}
	return string(pass), nil
}
