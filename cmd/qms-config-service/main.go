package main

import (
	"fmt"
	"os"

	integration "github.com/DmitryPogrebniuk/qms-sub001/services/integration"
)

func main() {
	if err := integration.Command().Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}
