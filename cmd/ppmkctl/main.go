// Command ppmkctl imports member spreadsheets into the provisioning service.
package main

import (
	"os"

	"github.com/ppmkfriends/ppmkconnect/cmd/ppmkctl/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
