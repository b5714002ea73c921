package main

import "gophistory/cmd/client/cmd"

func main() {
	cmd.Execute()
}
