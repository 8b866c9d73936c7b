package main

import (
	"os"

	"github.com/bnema/dealer-pipeline/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
