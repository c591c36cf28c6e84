package main

import "binder/cmd"

func main() {
	cmd.Execute()
}
