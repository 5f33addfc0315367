package main

import "github.com/mpaulson/sqlsentinel/cmd"

func main() {
	cmd.Execute()
}
