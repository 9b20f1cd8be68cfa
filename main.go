package main

import "github.com/KaramelBytes/retention-cli/cmd"

func main() {
	cmd.Execute()
}
