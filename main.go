package main

import "github.com/jortega/karaokejam/cmd"

func main() {
	cmd.Execute()
}
