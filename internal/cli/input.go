package cli

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"golang.org/x/term"
)

// Test seams for the terminal.
var (
	readPassword = term.ReadPassword
	isTerminal   = term.IsTerminal
)

// getPassword prompts on w and reads a password. On a terminal the input is
// not echoed; otherwise one line is read from in.
func getPassword(in io.Reader, w io.Writer) (string, error) {
	if _, err := fmt.Fprint(w, "Contraseña: "); err != nil {
		return "", err
	}
	fd := int(os.Stdin.Fd())
	if in == os.Stdin && isTerminal(fd) {
		pw, err := readPassword(fd)
		fmt.Fprintln(w)
		if err != nil {
			return "", err
		}
		return string(pw), nil
	}

	line, err := bufio.NewReader(in).ReadString('\n')
	if err != nil && !(errors.Is(err, io.EOF) && line != "") {
		return "", fmt.Errorf("reading password: %w", err)
	}
	fmt.Fprintln(w)
	return strings.TrimRight(line, "\r\n"), nil
}

// parseAssignments turns repeated key=value flags into a map.
func parseAssignments(pairs []string) (map[string]string, error) {
	out := make(map[string]string, len(pairs))
	for _, p := range pairs {
		k, v, ok := strings.Cut(p, "=")
		k = strings.TrimSpace(k)
		if !ok || k == "" {
			return nil, fmt.Errorf("invalid assignment %q: want field=value", p)
		}
		out[k] = v
	}
	return out, nil
}
