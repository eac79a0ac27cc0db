package main

import "github.com/nikogura/jobdocs/cmd"

func main() {
	cmd.Execute()
}
