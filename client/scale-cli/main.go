package main

import "scale/client/scale-cli/cmd"

func main() {
	cmd.Execute()
}
