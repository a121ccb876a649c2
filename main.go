package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"

	"github.com/EzzalddeenAli/recticket/config"
	"github.com/EzzalddeenAli/recticket/logger"
	"github.com/EzzalddeenAli/recticket/server"
)

func main() {
	configPath := flag.String("config", config.DefaultPath, "path to JSON config file")
	flag.Parse()

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		logger.App().WithError(err).Fatal("failed to load configuration")
	}
	if err := logger.Init(cfg.Log); err != nil {
		logger.App().WithError(err).Fatal("failed to init logger")
	}

	s, err := server.NewServer(cfg)
	if err != nil {
		logger.App().WithError(err).Fatal("failed to start server")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	logger.App().WithField("addr", cfg.Server.Addr).Info("listening")
	if err := s.Run(ctx); err != nil {
		logger.App().WithError(err).Error("server stopped with error")
		os.Exit(1)
	}
}
