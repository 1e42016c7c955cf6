package main

import "portfolio-api/cmd/portfolioctl/cmd"

func main() {
	cmd.Execute()
}
