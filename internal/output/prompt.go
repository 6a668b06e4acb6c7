package output

import (
	"fmt"
	"io"
	"os"
	"strings"

	"golang.org/x/term"
)

// Input is read by Prompt and Confirm.
var Input io.Reader = os.Stdin

func Prompt(label string) (string, error) {
	fmt.Fprint(Console, infoStyle.Render(label))
	line, err := readLine(Input)
	if err != nil && (err != io.EOF || line == "") {
		return "", fmt.Errorf("reading answer: %w", err)
	}
	return strings.TrimSpace(line), nil
}

// readLine reads up to and including '\n' one byte at a time, so nothing
// past the answer is consumed from r.
func readLine(r io.Reader) (string, error) {
	var line strings.Builder
	buf := make([]byte, 1)
	for {
		n, err := r.Read(buf)
		if n > 0 {
			line.WriteByte(buf[0])
			if buf[0] == '\n' {
				return line.String(), nil
			}
		}
		if err != nil {
			return line.String(), err
		}
	}
}

// PromptPassword reads a secret without echoing it.
func PromptPassword(label string) (string, error) {
	fmt.Fprint(Console, infoStyle.Render(label))
	fd := int(os.Stdin.Fd())
	if !term.IsTerminal(fd) {
		return Prompt("")
	}
	password, err := term.ReadPassword(fd)
	fmt.Fprintln(Console)
	if err != nil {
		return "", fmt.Errorf("reading password: %w", err)
	}
	return string(password), nil
}

// Confirm asks a yes/no question. Anything but y or yes is a no.
func Confirm(question string) bool {
	answer, err := Prompt(fmt.Sprintf("%s [y/N] ", question))
	if err != nil {
		return false
	}
	switch strings.ToLower(answer) {
	case "y", "yes":
		return true
	default:
		return false
	}
}
