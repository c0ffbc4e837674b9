package main

import "mangako/cmd/cli/command"

func main() {
	command.Execute()
}
