package main

import "github.com/naka-gawa/github-fork-stats/cmd"

func main() {
	cmd.Execute()
}
