package main

import "thoreinstein.com/scl/cmd"

func main() {
	cmd.Execute()
}
