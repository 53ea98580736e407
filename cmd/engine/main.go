// Command engine finds entry-level jobs offering visa sponsorship across
// job boards, tracks them, and applies to the new ones.
package main

import (
	"fmt"
	"os"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
