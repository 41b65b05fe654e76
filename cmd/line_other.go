//go:build !linux

/*
Copyright © 2025 Mathias Djärv <mathias.djarv@allbinary.se>
*/
package cmd

import (
	"errors"

	"github.com/allbin/go-sequans"
)

func newTermiosLine(string) (sequans.Line, error) {
	return nil, errors.New("termios driver is only available on Linux, use --driver portable")
}
