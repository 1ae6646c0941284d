package main

import "github.com/itsmostafa/paperalchemy/cmd"

func main() {
	cmd.Execute()
}
