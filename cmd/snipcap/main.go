// Command snipcap captures command output into committed doc snippets.
//
// It is designed to run as a docs pre-build hook: each configured snippet
// runs one command, captures its stdout byte-for-byte into a file under the
// snippet directory, and fails the build when any capture fails.
package main

import (
	"os"

	"github.com/snipcap/snipcap/internal/cli"
)

func main() {
	os.Exit(cli.Execute())
}
