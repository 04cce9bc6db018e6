package main

import (
	"os"

	"billetera/internal/cli"
)

func main() {
	os.Exit(cli.Execute())
}
