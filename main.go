package main

import "github.com/talentinsight/ai-quality-kit-sub003/cmd"

func main() {
	cmd.Execute()
}
