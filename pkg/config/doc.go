// Package config loads the coordinator configuration from the environment,
// optionally seeded from a .env file.
package config
