package main

import "github.com/k0pernicus/zou/cmd"

func main() {
	cmd.Execute()
}
