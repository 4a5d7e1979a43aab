// Command tablehealth is a single-binary CLI for analyzing the health of a
// Delta Lake or Apache Iceberg table stored in S3 or GCS.
package main

import (
	"fmt"
	"os"

	"github.com/rs/zerolog"

	"github.com/gear6io/tablehealth/cli"
	"github.com/gear6io/tablehealth/server/config"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		cfg = config.DefaultConfig()
	}

	logger, err := config.SetupLogger(cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to set up logging: %v\n", err)
		logger = zerolog.Nop()
	}

	if err := cli.ExecuteWithLogger(logger); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(cli.PendingExitCode())
	}
}
