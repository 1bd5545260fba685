package main

import (
	"flag"
	"log/slog"
	"os"
	"tender-agent-backend/config"
	"tender-agent-backend/dao"
	"tender-agent-backend/router"
	"tender-agent-backend/service/mq"
)

func main() {
	configPath := flag.String("config", "config/config.yaml", "配置文件路径")
	flag.Parse()

	if err := config.Init(*configPath); err != nil {
		slog.Error("Failed to load config", "err", err)
		os.Exit(1)
	}

	if err := dao.Init(); err != nil {
		slog.Error("Failed to init database", "err", err)
		os.Exit(1)
	}

	if err := mq.Run(); err != nil {
		slog.Error("Failed to start message queue", "err", err)
		os.Exit(1)
	}
	defer mq.Shutdown()

	r := router.Register()
	if err := r.Run(config.Cfg.Server.Host + ":" + config.Cfg.Server.Port); err != nil {
		slog.Error("Failed to run server", "err", err)
		os.Exit(1)
	}
}
