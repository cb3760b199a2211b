// Package main provides the entry point for the ctxcache CLI.
package main

import (
	"os"

	"github.com/gophersatwork/ctxcache/cmd/ctxcache/cmd"
)

func main() {
	os.Exit(cmd.Execute())
}
