// Command notebook is the terminal front end for a notebook server.
package main

import (
	"os"

	"github.com/kuitang/notebook/internal/cli"
	"github.com/kuitang/notebook/internal/errs"
	"github.com/kuitang/notebook/internal/obs"
)

func main() {
	obs.Init()
	// cobra has already printed the error.
	os.Exit(errs.ExitCode(cli.NewRootCommand().Execute()))
}
