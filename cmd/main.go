// cmd/main.go
package main

import cmd "github.com/mwiater/loadbench/cmd/loadbench"

// main starts the loadbench CLI by delegating to the cobra root command.
func main() {
	cmd.Execute()
}
