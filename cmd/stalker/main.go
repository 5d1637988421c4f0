package main

import (
	"os"

	"github.com/XDRAGON2002/stalker/cmd/stalker/cli"
)

func main() {
	os.Exit(cli.Execute())
}
