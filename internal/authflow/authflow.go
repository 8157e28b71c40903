// Package authflow is the state machine behind the sign-in form.
package authflow

import (
	"errors"
	"fmt"
)

// Mode is the form the viewer is looking at
type Mode string

const (
	Login  Mode = "login"
	Signup Mode = "signup"
	Forgot Mode = "forgot"
)

var ErrUnknownMode = errors.New("unknown auth mode")

var transitions = map[Mode][]Mode{
	Login:  {Signup, Forgot},
	Signup: {Login},
	Forgot: {Login},
}

// Parse validates a mode sent by the client
func Parse(s string) (Mode, error) {
	m := Mode(s)
	if _, ok := transitions[m]; !ok {
		return "", fmt.Errorf("%w: %q", ErrUnknownMode, s)
	}
	return m, nil
}

// Next lists the modes reachable from m
func (m Mode) Next() []Mode {
	return append([]Mode(nil), transitions[m]...)
}

// CanMoveTo reports whether the form may switch from m to to
func (m Mode) CanMoveTo(to Mode) bool {
	for _, n := range transitions[m] {
		if n == to {
			return true
		}
	}
	return false
}

// NeedsPassword reports whether submitting in m sends a password
func (m Mode) NeedsPassword() bool {
	return m != Forgot
}

// Strings renders modes for the client
func Strings(modes []Mode) []string {
	out := make([]string, len(modes))
	for i, m := range modes {
		out[i] = string(m)
	}
	return out
}
