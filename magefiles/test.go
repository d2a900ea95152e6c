//go:build mage

package main

import "github.com/magefile/mage/sh"

// Test runs all tests.
func Test() error {
	return sh.RunV(binGo, "test", "./...")
}

// TestUnit runs tests in short mode. Tests that wait on the sweeper's
// scheduler are skipped.
func TestUnit() error {
	return sh.RunV(binGo, "test", "-short", "./...")
}

// TestRace runs all tests with the race detector. The store and the sweeper
// share the data directory across goroutines.
func TestRace() error {
	return sh.RunV(binGo, "test", "-race", "./...")
}
