package main

import "github.com/maxvaer/dirsweep/cmd"

func main() {
	cmd.Execute()
}
