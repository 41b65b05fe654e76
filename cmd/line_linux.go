//go:build linux

/*
Copyright © 2025 Mathias Djärv <mathias.djarv@allbinary.se>
*/
package cmd

import "github.com/allbin/go-sequans"

func newTermiosLine(device string) (sequans.Line, error) {
	return sequans.NewTermiosLine(device), nil
}
