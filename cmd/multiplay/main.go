package main

import "github.com/mcoot/d2r-multiplay/internal/cli"

func main() {
	cli.Execute()
}
