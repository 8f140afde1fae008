package main

import (
	"fmt"
	"io"
)

// consoleStatus reports app state changes on a terminal.
type consoleStatus struct {
	out io.Writer
}

func (s consoleStatus) SetIdle()       { fmt.Fprintln(s.out, "● idle") }
func (s consoleStatus) SetRecording()  { fmt.Fprintln(s.out, "● recording... press Ctrl+C to stop") }
func (s consoleStatus) SetProcessing() { fmt.Fprintln(s.out, "● transcribing...") }
func (s consoleStatus) SetError()      { fmt.Fprintln(s.out, "● error") }
