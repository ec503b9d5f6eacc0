package main

import (
	"os"

	driftlinecmder "github.com/driftline/driftline/cmd/driftline"
)

func main() {
	cmd := driftlinecmder.NewDriftlineCmd()
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
