package main

import "github.com/Laisky/logviewer/cmd"

func main() {
	cmd.Execute()
}
