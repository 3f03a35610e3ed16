// Copyright 2021 The age Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package main

// This file implements the terminal UI of cmd/secrets. The rules are:
//
//   - Anything that requires user interaction goes to the terminal,
//     and is erased afterwards if possible.
//
//   - Everything else goes to standard error with a "secrets:" prefix.
//     No capitalized initials and no periods at the end.

import (
	"fmt"
	"log"
	"os"
	"runtime"

	"golang.org/x/term"
)

// l is a logger with no prefixes.
var l = log.New(os.Stderr, "", 0)

func printf(format string, v ...interface{}) {
	l.Printf("secrets: "+format, v...)
}

func errorf(format string, v ...interface{}) {
	l.Printf("secrets: error: "+format, v...)
	exit(1)
}

func warningf(format string, v ...interface{}) {
	l.Printf("secrets: warning: "+format, v...)
}

// If testOnlyPanicInsteadOfExit is true, exit will set testOnlyDidExit and
// panic with the exit code instead of calling os.Exit, so a recovering caller
// can tell a panic that originated in exit from any other.
var testOnlyPanicInsteadOfExit bool
var testOnlyDidExit bool

func exit(code int) {
	if testOnlyPanicInsteadOfExit {
		testOnlyDidExit = true
		panic(code)
	}
	os.Exit(code)
}

// avoidTerminalEscapeSequences is set on Windows consoles where virtual
// terminal processing could not be enabled; clearLine then just opens a
// new line instead of also erasing the previous one.
var avoidTerminalEscapeSequences bool

// clearLine clears the current line on the terminal, or opens a new line if
// terminal escape codes don't work.
func clearLine(out *os.File) {
	if avoidTerminalEscapeSequences {
		fmt.Fprintf(out, "\r\n")
		return
	}
	const (
		CUI = "\033["   // Control Sequence Introducer
		CPL = CUI + "F" // Cursor Previous Line
		EL  = CUI + "K" // Erase in Line
	)
	fmt.Fprintf(out, "\r\n"+CPL+EL)
}

// withTerminal runs f with the terminal input and output files, if available.
func withTerminal(f func(in, out *os.File) error) error {
	if runtime.GOOS == "windows" {
		in, err := os.OpenFile("CONIN$", os.O_RDWR, 0)
		if err != nil {
			return err
		}
		defer in.Close()
		out, err := os.OpenFile("CONOUT$", os.O_WRONLY, 0)
		if err != nil {
			return err
		}
		defer out.Close()
		return f(in, out)
	} else if tty, err := os.OpenFile("/dev/tty", os.O_RDWR, 0); err == nil {
		defer tty.Close()
		return f(tty, tty)
	} else if term.IsTerminal(int(os.Stdin.Fd())) {
		return f(os.Stdin, os.Stdin)
	} else {
		return fmt.Errorf("standard input is not a terminal, and /dev/tty is not available: %v", err)
	}
}

// readSecret reads a value from the terminal with no echo. The prompt is ephemeral.
func readSecret(prompt string) (s []byte, err error) {
	err = withTerminal(func(in, out *os.File) error {
		fmt.Fprintf(out, "%s ", prompt)
		defer clearLine(out)
		s, err = term.ReadPassword(int(in.Fd()))
		return err
	})
	return
}
