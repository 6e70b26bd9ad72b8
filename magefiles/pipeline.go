//go:build mage

package main

import (
	"path/filepath"

	"github.com/magefile/mage/mg"
	"github.com/magefile/mage/sh"
)

var bin = filepath.Join(binDir, binName)

// Sync relinks the books changed in the last commit.
func Sync() error {
	mg.Deps(Build)
	return sh.RunV(bin, "sync")
}

// Rescan relinks every book whose content hash differs from the hash store.
func Rescan() error {
	mg.Deps(Build)
	return sh.RunV(bin, "sync", "--strategy", "scan")
}

// Resolve re-resolves stored service output against the current catalog.
func Resolve() error {
	mg.Deps(Build)
	return sh.RunV(bin, "resolve")
}

// Export loads the final link files into the SQLite database.
func Export() error {
	mg.Deps(Build)
	return sh.RunV(bin, "export")
}
