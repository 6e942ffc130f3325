// Command ragdesk is the terminal client of the console: it resolves the
// signed-in identity against a console server and drives the chat and
// ingestion flows against the backend directly.
package main

import (
	"os"
)

func main() {
	if err := newRootCmd(os.Stdin, os.Stdout, nil).Execute(); err != nil {
		os.Exit(1)
	}
}
