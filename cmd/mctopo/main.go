// Command mctopo assembles and simulates multi-core CPU topologies.
package main

import "github.com/sarchlab/mctopo/cli"

func main() {
	cli.Execute()
}
