package main

import "github.com/Skotchmaster/storefront/cmd"

func main() {
	cmd.Execute()
}
