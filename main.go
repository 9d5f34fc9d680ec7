// Package main is the mctopo entry point. It runs the same command line as
// ./cmd/mctopo.
package main

import "github.com/sarchlab/mctopo/cli"

func main() {
	cli.Execute()
}
