package main

import "github.com/agentic-research/syncgen/cmd"

func main() {
	cmd.Execute()
}
