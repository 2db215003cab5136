// Command rotauth-server serves the rotauth login, refresh and logout endpoints.
package main

import (
	"os"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
