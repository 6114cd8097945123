package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"
)

func main() {
	cfgPath := flag.String("config", "./config/config.yaml", "path to config file")
	maxConcurrent := flag.Int("max-concurrent", 256, "max in-flight HTTP requests (0 disables the limit)")
	flag.Parse()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := Run(ctx, *cfgPath, *maxConcurrent); err != nil {
		os.Exit(1)
	}
}
