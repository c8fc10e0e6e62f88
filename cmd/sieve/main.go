package main

import (
	"os"

	"github.com/dshills/sieve/internal/cli"
)

func main() {
	os.Exit(cli.Run())
}
