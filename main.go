package main

import (
	"github.com/coxswain-app/shoreline/internal/cmd"
)

func main() {
	cmd.Execute()
}
