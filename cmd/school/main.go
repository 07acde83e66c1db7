// Command school runs the course portal.
package main

import (
	"log"

	"go.uber.org/zap"

	"github.com/patric-chuzhbe/schoolproject/internal/app"
	"github.com/patric-chuzhbe/schoolproject/internal/logger"
)

func main() {
	theApp, err := app.New()
	if err != nil {
		log.Fatalf("cannot start the portal: %v", err)
	}
	defer theApp.Close()

	if err := theApp.Run(); err != nil {
		logger.Log.Errorln("the portal stopped with an error", zap.Error(err))
	}
}
