package main

import (
	"os"

	"github.com/jensroland/git-lineage/cmd"
)

var version = "dev"

func main() {
	os.Exit(cmd.Execute(version))
}
