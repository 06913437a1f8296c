// Command metal builds meta-CpG indexes and seeds bisulfite reads against
// them.
package main

import "os"

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
