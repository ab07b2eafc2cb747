// Command mrmr-reader converts a CSV file into the binary format read by
// fast-mRMR.
//
//	mrmr-reader -f INPUT -o OUTPUT [--gpu]
package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/ajitpratap0/mrmr/pkg/errors"
)

var version = "0.1.0"

// exitFailure is the status of every failed run, -1 as an unsigned byte
const exitFailure = 255

func main() {
	// Load .env file if it exists
	_ = godotenv.Load()

	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

// run executes the command line and returns the process exit status
func run(args []string, stdout, stderr io.Writer) int {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	root := newRootCommand(stdout, stderr)
	if usageRequested(root, args) {
		fmt.Fprint(stdout, usageText)
		return exitFailure
	}
	root.SetArgs(args)

	if err := root.ExecuteContext(ctx); err != nil {
		if !errors.Is(err, errUsagePrinted) {
			fmt.Fprintf(stderr, "Error: %v\n", err)
		}
		return exitFailure
	}
	return 0
}
