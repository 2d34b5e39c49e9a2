package main

import "github.com/zheng/modgraph/cmd"

func main() {
	cmd.Execute()
}
