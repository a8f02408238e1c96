package main

import "github.com/forPelevin/danmaku2ass/internal/cli"

func main() {
	cli.Main()
}
