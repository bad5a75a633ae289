package main

import (
	"context"
	"fmt"
	"os"

	"hookahledger/internal/commands"
)

func main() {
	if err := commands.Execute(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
