package main

import (
	"log"
	"os"

	"github.com/bitcoin-sv/txlifecycle/cmd/txlifecycle/app"
)

func main() {
	err := app.Execute()
	if err != nil {
		log.Fatalf("failed to run txlifecycle: %v", err)
	}

	os.Exit(0)
}
