package main

import "github.com/audiolibrelab/voxcapture/cmd"

func main() {
	cmd.Execute()
}
