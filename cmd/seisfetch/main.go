// seisfetch downloads SCEDC continuous waveform files matching a station
// and time query.
//
// Usage:
//
//	seisfetch download [flags]       resolve a query and download its files
//	seisfetch snapshot [flags]       export matching index items as parquet
//	seisfetch duckdb-import [flags]  load a parquet snapshot into DuckDB
package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/xtxerr/seisfetch/internal/errors"
)

// Version is set at build time via ldflags
var Version = "dev"

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	code := run(ctx, os.Args[1:], os.Stdout, os.Stderr)
	stop()
	os.Exit(code)
}

// run dispatches to a subcommand and returns the process exit code.
func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	if len(args) == 0 {
		usage(stderr)
		return errors.ExitUsage
	}

	var err error
	switch args[0] {
	case "download":
		err = runDownload(ctx, args[1:], stdout, stderr)
	case "snapshot":
		err = runSnapshot(ctx, args[1:], stdout, stderr)
	case "duckdb-import":
		err = runImport(ctx, args[1:], stdout, stderr)
	case "version", "--version":
		fmt.Fprintf(stdout, "seisfetch %s\n", Version)
		return errors.ExitOK
	case "help", "-h", "--help":
		usage(stdout)
		return errors.ExitOK
	default:
		fmt.Fprintf(stderr, "unknown command %q\n\n", args[0])
		usage(stderr)
		return errors.ExitUsage
	}

	if err != nil {
		fmt.Fprintf(stderr, "seisfetch: %v\n", err)
	}
	return errors.ErrorToExitCode(err)
}

func usage(w io.Writer) {
	fmt.Fprint(w, `usage: seisfetch <command> [flags]

commands:
  download       resolve a query and download its files
  snapshot       export matching stations and files as parquet
  duckdb-import  load a parquet snapshot into a DuckDB index
  version        print the version

Run "seisfetch <command> --help" for command flags.
`)
}
