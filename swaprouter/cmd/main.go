package main

import (
	"os"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		log.Error().Err(err).Msg("swaprouter failed")
		os.Exit(1)
	}
}
