package main

import (
	"os"

	"github.com/peerlab/playground"
	"github.com/peerlab/playground/internal/config"
	log "github.com/sirupsen/logrus"
)

func main() {
	cfg := config.Load()
	h, err := playground.New(cfg, os.Stdin, os.Stdout)
	if err != nil {
		log.WithError(err).Fatal("Failed to create playground")
	}
	if err := h.Run(); err != nil {
		log.WithError(err).Fatal("Console loop failed")
	}
}
