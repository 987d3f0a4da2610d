package main

import "github.com/sourcerack/sourcerack/internal/cli"

func main() {
	cli.Execute()
}
