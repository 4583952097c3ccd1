package ui

import "golang.org/x/term"

// IsTTY reports whether f is attached to a terminal. The presenter uses it
// to choose between scrolling file lines and periodic progress lines.
func IsTTY(f interface{ Fd() uintptr }) bool {
	return term.IsTerminal(int(f.Fd()))
}
