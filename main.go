package main

import (
	"AltarProject/cmd"
	"os"
)

func main() {
	os.Exit(cmd.Execute())
}
