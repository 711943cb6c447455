// Package util holds the helpers shared by the dhook commands: flag setup,
// viper/env configuration and the construction of RPC clients.
package util
