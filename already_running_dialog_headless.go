//go:build headless

package main

import (
	"fmt"
	"os"

	"wechat-desktop/internal/config"
)

func showAlreadyRunningDialog() {
	fmt.Fprintln(os.Stderr, config.AppName+" is already running.")
}
