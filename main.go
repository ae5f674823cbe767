// File: main.go
package main

import "tileCaptcha/cmd"

func main() {
	cmd.Execute()
}
