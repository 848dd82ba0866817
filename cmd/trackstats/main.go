package main

import "github.com/pfrederiksen/trackstats/internal/cli"

func main() {
	cli.Execute()
}
