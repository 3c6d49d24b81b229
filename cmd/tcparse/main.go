package main

import (
	"github.com/pcdshub/tcparse/internal/logger"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		logger.Fatalf("Error: %v", err)
	}
}
