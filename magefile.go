//go:build mage
// +build mage

package main

import (
	"github.com/magefile/mage/sh"
)

func Build() error {
	return sh.RunV("go", "build", "./...")
}

func Test() error {
	return sh.RunV("go", "test", "./...")
}

func Run() error {
	return sh.RunV("go", "run", "./cmd/signaling-server")
}
