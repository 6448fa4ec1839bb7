package main

import (
	"os"

	"github.com/rfnet/nfctap/internal/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
