package main

import "github.com/mailbridge/console-auth/cmd/console-auth/cmd"

func main() {
	cmd.Execute()
}
