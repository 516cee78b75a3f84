package main

import "github.com/conference-manager/meeting-publisher/cmd/meeting-publisher/cmd"

func main() {
	cmd.Execute()
}
