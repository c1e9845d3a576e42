package main

import "github.com/uma-oracle/dlogic/cmd"

func main() {
	cmd.Execute()
}
