package main

import "selfbot/cmd"

func main() {
	cmd.Execute()
}
