package main

import "github.com/vietddude/dlqdiag/internal/cli"

func main() {
	cli.Execute()
}
