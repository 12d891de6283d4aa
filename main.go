package main

import "github.com/deploymenttheory/go-emmc/cmd"

func main() {
	cmd.Execute()
}
