package main

import (
	"github.com/templatesync/templatesync/cmd"
)

var version = "0.0.1"

func main() {
	cmd.Execute(version)
}
