package main

import (
	"flag"
	"io"
	"os"

	log "github.com/sirupsen/logrus"
	"gopkg.in/natefinch/lumberjack.v2"

	"flownet/config"
	"flownet/model"
	"flownet/network"
	"flownet/server"
)

var configPath = flag.String("config", "conf/config.ini", "ini 配置文件路径")

func main() {
	flag.Parse()
	cfg, err := config.Load(*configPath)
	if err != nil {
		log.WithError(err).Warn("使用缺省配置")
	}
	setupLogger(cfg.Log)

	scenario, err := model.LoadScenario(cfg.Scenario.File)
	if err != nil {
		log.WithError(err).Fatal("读取场景失败")
	}
	host, err := network.Build(scenario, network.Options{Workers: cfg.Solver.Workers})
	if err != nil {
		log.WithError(err).Fatal("建立网络失败")
	}
	defer host.Close()
	runner, err := network.NewRunner(host, cfg.Solver.Runner())
	if err != nil {
		log.WithError(err).Fatal("建立求解器失败")
	}

	s := server.NewServer(cfg.Server.Addr, cfg.Server.AllowOrigin, runner)
	defer s.Shutdown()
	if err := s.Serve(); err != nil {
		log.WithError(err).Fatal("ListenAndServe")
	}
}

// 日志同时写入终端和按大小滚动的文件
func setupLogger(cfg config.Log) {
	level, err := log.ParseLevel(cfg.Level)
	if err != nil {
		log.WithField("level", cfg.Level).Warn("unknown log level, using info")
		level = log.InfoLevel
	}
	log.SetLevel(level)
	log.SetFormatter(&log.TextFormatter{FullTimestamp: true})
	if cfg.File == "" {
		log.SetOutput(os.Stdout)
		return
	}
	log.SetOutput(io.MultiWriter(os.Stdout, &lumberjack.Logger{
		Filename:   cfg.File,
		MaxSize:    cfg.MaxSize,
		MaxBackups: cfg.MaxBackups,
		MaxAge:     cfg.MaxAge,
	}))
}
