package main

import "github.com/forPelevin/subalign/internal/cli"

func main() {
	cli.Main()
}
