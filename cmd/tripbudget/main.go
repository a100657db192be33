package main

import "tripbudget/internal/cli"

func main() {
	cli.Execute()
}
