package main

import (
	"bufio"
	"fmt"
	"io"
	"strings"
	"sync"
)

// terminalUI implements controller.UI on a line-oriented terminal.
type terminalUI struct {
	mu        sync.Mutex
	in        *bufio.Reader
	out       io.Writer
	assumeYes bool
	route     string
}

func newTerminalUI(in io.Reader, out io.Writer, assumeYes bool) *terminalUI {
	return &terminalUI{in: bufio.NewReader(in), out: out, assumeYes: assumeYes}
}

func (u *terminalUI) Confirm(prompt string) bool {
	u.mu.Lock()
	defer u.mu.Unlock()
	if u.assumeYes {
		return true
	}
	fmt.Fprintf(u.out, "%s [y/N]: ", prompt)
	answer, _ := u.in.ReadString('\n')
	switch strings.ToLower(strings.TrimSpace(answer)) {
	case "y", "yes":
		return true
	}
	return false
}

func (u *terminalUI) Alert(message string) {
	u.mu.Lock()
	defer u.mu.Unlock()
	fmt.Fprintln(u.out, message)
}

func (u *terminalUI) Navigate(route string) {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.route = route
	fmt.Fprintf(u.out, "-> %s\n", route)
}

// Prompt reads one line after printing label.
func (u *terminalUI) Prompt(label string) string {
	u.mu.Lock()
	defer u.mu.Unlock()
	fmt.Fprint(u.out, label)
	line, _ := u.in.ReadString('\n')
	return strings.TrimSpace(line)
}

// Route is the last route navigated to.
func (u *terminalUI) Route() string {
	u.mu.Lock()
	defer u.mu.Unlock()
	return u.route
}
