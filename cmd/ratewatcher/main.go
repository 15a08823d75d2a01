package main

import (
	"borrow-rate-alerts/internal/cli"
)

func main() {
	cli.Execute()
}
