package main

import (
	"os"

	"github.com/ivlev/redactshot/internal/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
