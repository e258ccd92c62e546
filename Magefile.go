//go:build mage
// +build mage

package main

import (
	"github.com/magefile/mage/mg"
	"github.com/magefile/mage/sh"
)

var Default = Build

// Build builds the blocksync command.
func Build() error {
	return sh.Run(mg.GoCmd(), "build", "./cmd/blocksync")
}

// Test runs the tests.
// Set BLOCKSYNC_PG_TESTING_CONN and BLOCKSYNC_GCS_TESTING_CREDS/_PROJECT to include the pg and gcs stores.
func Test() error {
	args := []string{"test"}
	if mg.Verbose() {
		args = append(args, "-v")
	}
	args = append(args, "./...")
	return sh.Run(mg.GoCmd(), args...)
}

// Vet runs go vet.
func Vet() error {
	return sh.Run(mg.GoCmd(), "vet", "./...")
}

// Check runs Vet and then Test.
func Check() {
	mg.SerialDeps(Vet, Test)
}

// Cover writes a test coverage profile to cover.out.
func Cover() error {
	return sh.Run(mg.GoCmd(), "test", "-coverprofile", "cover.out", "./...")
}
