package main

import (
	"newsbrief/cmd/cmd"
	"newsbrief/internal/logger"
)

func main() {
	logger.Init() // Initialize the logger
	cmd.Execute()
}
