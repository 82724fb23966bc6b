// Package main provides the entry point for the spiegel CLI.
//
// Spiegel mirrors remote file trees into local directories. Crawl
// targets are declared in a YAML configuration file; each run
// synchronizes the local mirror with the remote state.
//
// Usage:
//
//	spiegel run [crawler...]
//	spiegel report [crawler...]
//
// See --help for all available options.
package main

// main is the entry point for spiegel.
func main() {
	Execute()
}
