package server

import (
	"spinwheel/internal/logger"
)

func SetLogger(config *Config) error {
	err := logger.Initialize(logger.Configuration{
		LogFile:   config.FileLog,
		ErrorFile: config.ErrorLog,
		Level:     config.LogLevel,
		Console:   config.Console,
	})
	if err != nil {
		return err
	}
	logger.Info("Start program")
	return nil
}
