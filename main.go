package main

import "github.com/andresmejia3/keybench/cmd"

func main() {
	cmd.Execute()
}
