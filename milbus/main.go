// Package main is the entry point of the milbus command.
package main

import "github.com/sarchlab/milbus/milbus/cmd"

func main() {
	cmd.Execute()
}
