// Package utils exposes the configuration and logging helpers shared by the CLI.
//
// ConfigurationLoader layers embedded defaults, configuration files, prefixed
// environment overrides and explicit environment bindings through Viper.
// LoggerFactory builds zap loggers for the structured and console formats.
package utils
