package main

import "DevAmp/cmd"

func main() {
	cmd.Execute()
}
