package main

import "github.com/MadVikingGod/weaver/cmd"

func main() {
	cmd.Execute()
}
