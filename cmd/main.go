package main

import (
	"github.com/jmx-collector/cmd/agent"
)

func main() {
	agent.Execute()
}
