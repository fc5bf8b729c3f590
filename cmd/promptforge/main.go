// Promptforge - turns rough requests into refined, validated prompts
package main

import (
	"os"

	"github.com/HartBrook/promptforge/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
