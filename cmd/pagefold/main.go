package main

import "github.com/pagefold/pagefold/cmd"

func main() {
	cmd.Execute()
}
