/*
Copyright © 2026 NAME HERE <EMAIL ADDRESS>
*/
package main

import "github.com/vitality-hq/syncserver/cmd"

func main() {
	cmd.Execute()
}
