package main

import "github.com/antnet/antnet/cmd"

func main() {
	cmd.Execute()
}
