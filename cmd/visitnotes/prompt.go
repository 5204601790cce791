package main

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"golang.org/x/term"
)

var stdin = bufio.NewReader(os.Stdin)

// readSecret prompts on stderr and reads a line without echo when stdin is
// a terminal.
func readSecret(prompt string) (string, error) {
	fmt.Fprintf(os.Stderr, "%s: ", prompt)
	fd := int(os.Stdin.Fd())
	if term.IsTerminal(fd) {
		b, err := term.ReadPassword(fd)
		fmt.Fprintln(os.Stderr)
		if err != nil {
			return "", fmt.Errorf("reading %s: %w", strings.ToLower(prompt), err)
		}
		return string(b), nil
	}
	line, err := stdin.ReadString('\n')
	if err != nil && line == "" {
		return "", fmt.Errorf("reading %s: %w", strings.ToLower(prompt), err)
	}
	return strings.TrimRight(line, "\r\n"), nil
}

// readNewSecret prompts twice and requires both entries to match.
func readNewSecret(prompt string) (string, error) {
	first, err := readSecret(prompt)
	if err != nil {
		return "", err
	}
	if first == "" {
		return "", fmt.Errorf("%s must not be empty", strings.ToLower(prompt))
	}
	second, err := readSecret("Confirm " + strings.ToLower(prompt))
	if err != nil {
		return "", err
	}
	if first != second {
		return "", fmt.Errorf("entries do not match")
	}
	return first, nil
}
