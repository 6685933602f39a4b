package main

import "github.com/mselser95/polymarket-scanner/cmd"

func main() {
	cmd.Execute()
}
