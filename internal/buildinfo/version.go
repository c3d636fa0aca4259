// SPDX-License-Identifier: AGPL-3.0-or-later
// gsmcore - a GSM/GPRS Um-side protocol core

// Package buildinfo holds the version and commit strings stamped into the
// binary at link time via -ldflags, the same informational pair the
// teacher's cmd.NewCommand reports in its --version output.
package buildinfo

var (
	// Version is the release version, overridden at build time with
	// -ldflags "-X github.com/gsmcore/gsmcore/internal/buildinfo.Version=...".
	Version = "dev"

	// GitCommit is the commit hash the binary was built from, overridden
	// the same way as Version.
	GitCommit = "unknown"
)
