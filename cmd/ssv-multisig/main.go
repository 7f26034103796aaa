package main

import (
	"github.com/ssvlabs/ssv-multisig/cli"
)

var (
	// AppName is the application name
	AppName = "ssv-multisig"

	// Version is the app version
	Version = "v0.1.0"
)

func main() {
	cli.Execute(AppName, Version)
}
