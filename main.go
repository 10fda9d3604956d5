package main

import "github.com/uratmangun/ai-custodial-wallet/cmd"

func main() {
	cmd.Execute()
}
