// Package main is the entry point for the choco backend.
package main

import "choco-backend/cmd/choco/cmd"

func main() {
	cmd.Execute()
}
