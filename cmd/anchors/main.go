// anchors is the command line client of anchoring channels.
package main

import "github.com/jmcanterafonseca-iota/iota-anchor-channels/internal/cli"

func main() {
	cli.Execute()
}
