// Package config loads the project configuration file (spec §6.3): a TOML
// document read from the project root controlling whether lifecycle
// scripts may run, the installer's download concurrency, and which
// registry the client talks to.
package config
