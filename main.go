package main

import "github.com/kozaktomas/face-consistency/cmd"

func main() {
	cmd.Execute()
}
