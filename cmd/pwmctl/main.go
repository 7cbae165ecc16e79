package main

import (
	"github.com/robotalks/pwmlink/pkg/cli/sh"

	_ "github.com/robotalks/pwmlink/pkg/cli/cmds/pwm"
)

//go-build: CGO_ENABLED=0

func main() {
	sh.Main()
}
