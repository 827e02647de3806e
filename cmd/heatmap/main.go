package main

import "github.com/dgnsrekt/heatmap_agent/internal/cli"

func main() {
	cli.Execute()
}
