package main

import (
	"regatta/app/cli/cmd"
)

func main() {
	cmd.NewRootCommand().Execute()
}
