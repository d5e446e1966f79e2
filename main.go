package main

import "github.com/lukman83/keepwarm/cmd"

func main() {
	cmd.Execute()
}
