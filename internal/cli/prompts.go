package cli

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"

	"golang.org/x/term"

	"github.com/mrz1836/sigilid/internal/sigilcrypto"
	sigilerr "github.com/mrz1836/sigilid/pkg/errors"
)

// Prompt hooks, replaced in tests.
//
//nolint:gochecknoglobals // Swappable for testing
var (
	promptPasswordFn    = promptPassword
	promptNewPasswordFn = promptNewPassword
	promptSecretFn      = promptSecret
	promptConfirmFn     = promptConfirm
)

// stdinFD is the file descriptor of standard input.
func stdinFD() int {
	return int(os.Stdin.Fd()) //nolint:gosec // File descriptors fit in int
}

// promptPassword prompts for a password with hidden input.
// The caller is responsible for zeroing the returned bytes after use.
func promptPassword(prompt string) ([]byte, error) {
	out(os.Stderr, "%s", prompt)

	password, err := term.ReadPassword(stdinFD())
	outln(os.Stderr) // Add newline after hidden input

	if err != nil {
		return nil, fmt.Errorf("reading password: %w", err)
	}
	return password, nil
}

// promptNewPassword prompts for a new password with confirmation.
// The caller is responsible for zeroing the returned bytes after use.
func promptNewPassword(minLength int) ([]byte, error) {
	password, err := promptPasswordFn("Enter new wallet password: ")
	if err != nil {
		return nil, err
	}

	if len(password) < minLength {
		sigilcrypto.Zero(password)
		return nil, sigilerr.WithSuggestion(
			sigilerr.ErrInvalidInput,
			fmt.Sprintf("password must be at least %d characters", minLength),
		)
	}

	confirm, err := promptPasswordFn("Confirm password: ")
	if err != nil {
		sigilcrypto.Zero(password)
		return nil, err
	}
	defer sigilcrypto.Zero(confirm)

	if string(password) != string(confirm) {
		sigilcrypto.Zero(password)
		return nil, sigilerr.WithSuggestion(
			sigilerr.ErrInvalidInput,
			"passwords do not match",
		)
	}
	return password, nil
}

// promptSecret reads the secret key phrase, hidden when stdin is a terminal.
// The caller is responsible for zeroing the returned bytes after use.
func promptSecret() ([]byte, error) {
	if term.IsTerminal(stdinFD()) {
		return promptPassword("Enter your secret key phrase: ")
	}
	return readLine(os.Stdin)
}

// promptConfirm asks a yes/no question and defaults to no.
func promptConfirm(prompt string) bool {
	out(os.Stderr, "%s [y/N]: ", prompt)
	line, err := readLine(os.Stdin)
	if err != nil {
		return false
	}
	answer := strings.ToLower(strings.TrimSpace(string(line)))
	return answer == "y" || answer == "yes"
}

func readLine(r io.Reader) ([]byte, error) {
	line, err := bufio.NewReader(r).ReadBytes('\n')
	if err != nil && len(line) == 0 {
		return nil, fmt.Errorf("reading input: %w", err)
	}
	return []byte(strings.TrimRight(string(line), "\r\n")), nil
}

// out is a helper for CLI output.
//
//nolint:errcheck // CLI output writes are intentionally unchecked
func out(w io.Writer, format string, args ...any) {
	fmt.Fprintf(w, format, args...)
}

// outln is a helper for CLI output with newline.
//
//nolint:errcheck // CLI output writes are intentionally unchecked
func outln(w io.Writer, args ...any) {
	fmt.Fprintln(w, args...)
}
