package config

import (
	"fmt"

	"gopkg.in/ini.v1"

	"flownet/network"
)

type Config struct {
	Server   Server
	Solver   Solver
	Log      Log
	Scenario Scenario
}

type Server struct {
	Addr        string
	AllowOrigin string
}

type Solver struct {
	TimeStep      float64 // s
	EndTime       float64 // s
	Tolerance     float64
	MaxIterations int
	Workers       int
	HistoryLength int
}

type Log struct {
	Level string
	// 为空时只输出到终端
	File       string
	MaxSize    int // MB
	MaxBackups int
	MaxAge     int // 天
}

type Scenario struct {
	File string
}

// 缺省配置
func Default() Config {
	return loadCfg(ini.Empty())
}

// Load 读取配置文件，缺少的项取缺省值
func Load(path string) (Config, error) {
	file, err := ini.Load(path)
	if err != nil {
		return Default(), fmt.Errorf("配置文件读取错误，请检查文件路径 %s: %w", path, err)
	}
	return loadCfg(file), nil
}

func loadCfg(file *ini.File) Config {
	return Config{
		Server: Server{
			Addr:        file.Section("server").Key("Addr").MustString(":9000"),
			AllowOrigin: file.Section("server").Key("AllowOrigin").MustString("*"),
		},
		Solver: Solver{
			TimeStep:      file.Section("solver").Key("TimeStep").MustFloat64(60),
			EndTime:       file.Section("solver").Key("EndTime").MustFloat64(86400),
			Tolerance:     file.Section("solver").Key("Tolerance").MustFloat64(1e-6),
			MaxIterations: file.Section("solver").Key("MaxIterations").MustInt(10),
			Workers:       file.Section("solver").Key("Workers").MustInt(4),
			HistoryLength: file.Section("solver").Key("HistoryLength").MustInt(4096),
		},
		Log: Log{
			Level:      file.Section("log").Key("Level").MustString("info"),
			File:       file.Section("log").Key("File").String(),
			MaxSize:    file.Section("log").Key("MaxSize").MustInt(100),
			MaxBackups: file.Section("log").Key("MaxBackups").MustInt(5),
			MaxAge:     file.Section("log").Key("MaxAge").MustInt(30),
		},
		Scenario: Scenario{
			File: file.Section("scenario").Key("File").MustString("conf/scenario.json"),
		},
	}
}

func (s Solver) Runner() network.RunnerConfig {
	return network.RunnerConfig{
		TimeStep:      s.TimeStep,
		EndTime:       s.EndTime,
		Tolerance:     s.Tolerance,
		MaxIterations: s.MaxIterations,
		HistoryLength: s.HistoryLength,
	}
}
