package main

import (
	"github.com/the-blue-alliance/the-blue-alliance-sub005/internal/config"
	"github.com/the-blue-alliance/the-blue-alliance-sub005/internal/process"
	"github.com/the-blue-alliance/the-blue-alliance-sub005/internal/telemetry"
)

func main() {
	cfg := config.Load()
	telemetry.Init(telemetry.ParseLogLevel(cfg.LogLevel))
	process.Run(cfg)
}
