package main

import (
	"fmt"
	"os"

	"github.com/pratik-mahalle/pullrunner/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		if !cli.Reported(err) {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		}
		os.Exit(1)
	}
}
