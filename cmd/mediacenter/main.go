// Media Center client - browse, upload and share media files.
package main

import (
	"os"

	"github.com/nexx/mediacenter/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
