package main

import "github.com/perf-diff/cmd/cli/cmd"

func main() {
	cmd.Execute()
}
