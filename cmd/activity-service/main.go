package main

import (
	"os"

	"github.com/FrithiofJensen/openproject/activityservice"
)

func main() {
	if err := activityservice.Run(); err != nil {
		os.Exit(1)
	}
}
