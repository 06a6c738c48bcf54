package main

import "github.com/vkotelnikov/eduplatform/cmd"

func main() {
	cmd.Execute()
}
