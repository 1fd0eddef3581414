package main

import "presentation-assistant/internal/cli"

func main() {
	cli.Execute()
}
