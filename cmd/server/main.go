package main

import (
	"pharmacist/internal/cli"
	_ "time/tzdata"
)

func main() {
	cli.Execute()
}
