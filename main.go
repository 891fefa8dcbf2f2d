package main

import "github.com/schemaflow/schemaflow/cmd"

func main() {
	cmd.Execute()
}
