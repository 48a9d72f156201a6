package main

import "github.com/glidepath/glidepath/cmd/glidepath/cmd"

func main() {
	cmd.Execute()
}
