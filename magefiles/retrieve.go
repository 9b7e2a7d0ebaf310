//go:build mage

package main

import (
	"os"
	"os/exec"
	"path/filepath"

	"github.com/magefile/mage/mg"
)

// Smoke builds the CLI and prints the queries a mini harvest would run,
// without touching the network.
func Smoke() error {
	mg.Deps(Build)
	return runBinary("queries", "--mini")
}

// Retrieve builds the CLI and runs a full harvest with the default settings.
func Retrieve() error {
	mg.Deps(Build)
	return runBinary("retrieve")
}

func runBinary(args ...string) error {
	cmd := exec.Command(filepath.Join(binDir, binName), args...)
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	return cmd.Run()
}
