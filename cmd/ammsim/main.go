package main

import (
	"amm-backtest/internal/cli"
)

func main() {
	cli.Execute()
}
