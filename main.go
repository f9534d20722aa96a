/*
Command-line tool for backing up and restoring MacPGP key-pairs.

Usage:

	$ macpgp [<flags>] <subcommand> [<args> ...]

Use 'macpgp help' to see more details.
*/
package main

import (
	"os"

	"github.com/alecthomas/kingpin/v2"

	"github.com/macpgp/macpgp/cli"
)

func main() {
	app := cli.NewApp()

	kpApp := kingpin.New("macpgp", "Back up, restore and manage MacPGP key-pairs.")
	kpApp.Version(cli.BuildVersion)
	app.Attach(kpApp)

	kingpin.MustParse(kpApp.Parse(os.Args[1:]))
}
