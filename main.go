package main

import "github.com/viniciusmctf/prksweep/cmd"

func main() {
	cmd.Execute()
}
