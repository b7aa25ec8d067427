package main

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/ergochat/readline"
	"golang.org/x/term"
)

const (
	historyFileName = ".mpdc_history"
	historySize     = 500
)

// LineEditor reads commands with readline on a terminal, and line by line
// from stdin otherwise (pipes, scripts).
type LineEditor struct {
	interactive bool
	rl          *readline.Instance
	scanner     *bufio.Scanner
}

func NewLineEditor() *LineEditor {
	if !term.IsTerminal(int(os.Stdin.Fd())) {
		return &LineEditor{scanner: bufio.NewScanner(os.Stdin)}
	}

	var historyPath string
	if home, err := os.UserHomeDir(); err == nil {
		historyPath = filepath.Join(home, historyFileName)
	}

	rl, err := readline.NewFromConfig(&readline.Config{
		HistoryFile:            historyPath,
		HistoryLimit:           historySize,
		DisableAutoSaveHistory: true,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Warning: readline init failed (%v), using basic input\n", err)
		return &LineEditor{scanner: bufio.NewScanner(os.Stdin)}
	}

	return &LineEditor{interactive: true, rl: rl}
}

// GetLine returns the next line without its newline, or io.EOF.
func (le *LineEditor) GetLine(prompt string) (string, error) {
	if !le.interactive {
		if !le.scanner.Scan() {
			if err := le.scanner.Err(); err != nil {
				return "", err
			}
			return "", io.EOF
		}
		return le.scanner.Text(), nil
	}

	le.rl.SetPrompt(prompt)
	line, err := le.rl.Readline()
	if err != nil {
		if err == readline.ErrInterrupt {
			return "", io.EOF
		}
		return "", err
	}

	if trimmed := strings.TrimSpace(line); trimmed != "" {
		le.rl.SaveToHistory(trimmed)
	}
	return line, nil
}

func (le *LineEditor) Close() {
	if le.rl != nil {
		le.rl.Close()
		le.rl = nil
	}
}
