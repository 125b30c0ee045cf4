package main

import "github.com/pandodao/paybridge/cmd/paybridge-cli/cmd"

func main() {
	cmd.Execute()
}
