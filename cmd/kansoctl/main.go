package main

import "github.com/comitanigiacomo/kanso-wellness-engine/cmd/kansoctl/commands"

func main() {
	commands.Execute()
}
