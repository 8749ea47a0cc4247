package main

import "service-marketplace/cmd"

func main() {
	cmd.Execute()
}
