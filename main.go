package main

import "github.com/koyak/kombat_backend/cmd"

func main() {
	cmd.Execute()
}
