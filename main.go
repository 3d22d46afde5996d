package main

import "decksage/simgraph/cmd"

func main() {
	cmd.Execute()
}
