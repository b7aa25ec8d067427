package main

import (
	"strings"

	"github.com/pkg/errors"
	"go.uber.org/zap"
)

func newLogger(level string) (*zap.Logger, error) {
	lvl, err := zap.ParseAtomicLevel(strings.ToLower(level))
	if err != nil {
		return nil, errors.Wrapf(err, "invalid log level %q", level)
	}

	config := zap.NewProductionConfig()
	if lvl.Level() == zap.DebugLevel {
		config = zap.NewDevelopmentConfig()
	}
	config.Level = lvl

	return config.Build()
}
