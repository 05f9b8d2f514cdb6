package main

import "github.com/kgpp34/Redis-Source-Learning/cmd"

func main() {
	cmd.Execute()
}
