// Command guardsim runs simulated agent tasks through a policy engine and
// writes a verifiable evidence pack for every run.
package main

import "github.com/ppiankov/guardsim/internal/cli"

func main() {
	cli.Execute()
}
