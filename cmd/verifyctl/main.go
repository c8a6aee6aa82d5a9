package main

import (
	"os"

	"github.com/saturnino-fabrica-de-software/voterid/internal/cli"
)

func main() {
	os.Exit(cli.Execute())
}
