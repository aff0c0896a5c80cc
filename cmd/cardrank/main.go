package main

import (
	"os"

	"github.com/shopspring/decimal"

	"card-rewards-api/internal/commands"
)

func main() {
	decimal.MarshalJSONWithoutQuotes = true

	if err := commands.NewRootCommand().Execute(); err != nil {
		os.Exit(1)
	}
}
