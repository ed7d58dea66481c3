package main

import "github.com/devassist/proposal-analyzer/internal/cli"

func main() {
	cli.Execute()
}
