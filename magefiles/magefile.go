//go:build mage

// Package main provides build targets for the sheetsql project using Mage.
//
// Usage:
//
//	mage build      Compile sheetsql binary to bin/
//	mage test       Run all tests
//	mage testUnit   Run tests in short mode (skips scheduler timing tests)
//	mage testRace   Run all tests with the race detector
//	mage lint       Run golangci-lint
//	mage clean      Remove build artifacts
//	mage install    Install sheetsql to GOPATH/bin
package main

import (
	"os"
	"path/filepath"

	"github.com/magefile/mage/mg"
	"github.com/magefile/mage/sh"
)

const (
	binGo      = "go"
	binaryName = "sheetsql"
	binaryDir  = "bin"
	cmdDir     = "./cmd/sheetsql"

	versionVar = "github.com/mesh-intelligence/sheetsql/pkg/sheetsql.Version"
)

// ldflags stamps SHEETSQL_VERSION into the binary when it is set.
func ldflags() string {
	if v := os.Getenv("SHEETSQL_VERSION"); v != "" {
		return "-X " + versionVar + "=" + v
	}
	return ""
}

// Build compiles the sheetsql binary to bin/.
func Build() error {
	if err := os.MkdirAll(binaryDir, 0o755); err != nil {
		return err
	}
	return sh.RunV(binGo, "build", "-v", "-ldflags", ldflags(), "-o", filepath.Join(binaryDir, binaryName), cmdDir)
}

// Clean removes build artifacts.
func Clean() error {
	if err := os.RemoveAll(binaryDir); err != nil {
		return err
	}
	return sh.RunV(binGo, "clean")
}

// Install builds and copies the binary to GOPATH/bin.
func Install() error {
	mg.Deps(Build)
	gopath, err := sh.Output(binGo, "env", "GOPATH")
	if err != nil {
		return err
	}
	src := filepath.Join(binaryDir, binaryName)
	dst := filepath.Join(gopath, "bin", binaryName)
	return sh.Copy(dst, src)
}
