package main

import (
	"os"

	"github.com/railops/induction/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
