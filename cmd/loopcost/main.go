// Command loopcost estimates the cycle cost of loop programs on a modelled
// machine. See "loopcost --help".
package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/roach88/loopcost/internal/cli"
)

func main() {
	err := cli.NewRootCommand().Execute()
	if err != nil {
		// Commands report their own failures in the chosen format; anything
		// else (bad flags, wrong argument count) is printed here.
		var exitErr *cli.ExitError
		if !errors.As(err, &exitErr) {
			fmt.Fprintf(os.Stderr, "loopcost: %v\n", err)
		}
	}
	os.Exit(cli.GetExitCode(err))
}
