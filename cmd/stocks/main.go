package main

import (
	"os"

	"github.com/alexboumb/SuperSimpleStocks2/cmd/stocks/commands"
)

// main is the entry point for the stocks CLI
func main() {
	if err := commands.Execute(); err != nil {
		os.Exit(1)
	}
}
