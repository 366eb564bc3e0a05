package main

import "github.com/aesbenjamin/smart-places-AITinkerers-SP/cmd"

func main() {
	cmd.Execute()
}
