// Command ipcguard is the operator CLI for the IPC authorization gateway:
// configuration validation, one-shot authorization checks, profile listing,
// and configuration watching.
package main

import (
	"os"

	"github.com/meridianapp/ipcguard/internal/cli"
)

func main() {
	os.Exit(cli.Execute())
}
