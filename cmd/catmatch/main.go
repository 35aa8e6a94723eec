// Package main provides the entry point for the catmatch CLI.
package main

import (
	"fmt"
	"os"

	"github.com/Aman-CERP/catmatch/cmd/catmatch/cmd"
	caterrors "github.com/Aman-CERP/catmatch/internal/errors"
)

func main() {
	if err := cmd.Execute(); err != nil {
		_, _ = fmt.Fprint(os.Stderr, caterrors.FormatForCLI(err))
		os.Exit(1)
	}
}
