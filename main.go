package main

import "portforge/cmd"

func main() {
	cmd.Execute()
}
