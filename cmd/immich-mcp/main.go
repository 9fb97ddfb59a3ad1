package main

import "os"

var (
	version = "dev"
	commit  = "unknown"
	date    = ""
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
