package main

import "github.com/ValentinKolb/dHook/cmd"

func main() {
	cmd.Execute()
}
