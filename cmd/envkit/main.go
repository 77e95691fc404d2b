package main

import "envkit/internal/cli"

func main() {
	cli.Execute()
}
