// The main package for the statusinfo executable.
package main

import (
	"github.com/JakeFAU/statusinfo/cmd"
)

// main defers all execution to the Cobra CLI.
func main() {
	cmd.Execute()
}
