package main

import "github.com/coursehub-lms/apiserver/cmd"

func main() {
	cmd.Execute()
}
