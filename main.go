package main

import "github.com/secondarymetabolites/crispy-service/internal/cli"

func main() {
	cli.Execute()
}
