package main

import (
	"context"
	"os"

	"github.com/drcash-dev/drcash/internal/commands"
)

func main() {
	if err := commands.NewRootCommand().ExecuteContext(context.Background()); err != nil {
		os.Exit(1)
	}
}
