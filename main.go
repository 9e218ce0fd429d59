// The main package for the tendercrawler executable.
package main

import (
	"github.com/JakeFAU/tender-crawler/cmd"
)

// main defers all execution to the Cobra CLI.
func main() {
	cmd.Execute()
}
