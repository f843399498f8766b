package main

import (
	"github.com/zorins376-hub/music-bot/cmd"
)

func main() {
	cmd.Execute()
}
