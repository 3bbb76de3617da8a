package main

import "github.com/vitaup/vitacore/cmd/vita"

func main() {
	vita.Execute()
}
