package main

import (
	"school_inventory_tool/cmd"
	"school_inventory_tool/config"
)

func main() {
	config.LoadEnv()
	cmd.Execute()
}
