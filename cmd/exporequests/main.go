package main

import "github.com/thetangentline/pcftraffic/internal/cli"

func main() {
	cli.Execute(cli.NewTimestampCommand())
}
