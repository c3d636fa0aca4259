// SPDX-License-Identifier: AGPL-3.0-or-later
// gsmcore - a GSM/GPRS Um-side protocol core

// Command gsmcored is the thin binary wrapper around internal/cmd's cobra
// root command.
package main

import (
	"fmt"
	"os"

	"github.com/gsmcore/gsmcore/internal/buildinfo"
	"github.com/gsmcore/gsmcore/internal/cmd"
)

func main() {
	if err := cmd.NewCommand(buildinfo.Version, buildinfo.GitCommit).Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
