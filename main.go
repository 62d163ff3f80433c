package main

import "github.com/kiesman99/mapframe/cmd"

func main() {
	cmd.Execute()
}
