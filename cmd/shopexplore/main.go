package main

import "github.com/vbonduro/shopexplore/cmd/shopexplore/command"

func main() {
	command.Execute()
}
