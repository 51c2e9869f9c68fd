package main

import "go.uber.org/zap"

// newLogger returns a human readable logger in development and JSON
// otherwise
func newLogger(env string) (*zap.Logger, error) {
	if env == "development" {
		return zap.NewDevelopment()
	}
	return zap.NewProduction()
}
