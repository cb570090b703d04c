// Package main is the entry point for the newswatch binary.
package main

import "github.com/luanbrandao/newswatch/cmd"

func main() {
	cmd.Execute()
}
