package main

import (
	"context"
	"os"

	log "github.com/sirupsen/logrus"

	"github.com/determined-ai/trialview/pkg/logger"
)

func main() {
	// Errors while loading the configuration are logged before it can set the format.
	logger.SetLogrus(*logger.DefaultConfig())

	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		log.Errorf("det-trialview: %+v", err)
		os.Exit(1)
	}
}
