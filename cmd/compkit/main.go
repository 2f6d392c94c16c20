package main

import "compkit/internal/cli"

func main() {
	cli.Execute()
}
