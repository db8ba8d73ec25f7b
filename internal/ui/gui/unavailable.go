//go:build headless

package gui

import (
	"context"
	"errors"

	"wechat-desktop/internal/app"
	"wechat-desktop/internal/logging"
)

var ErrUnavailable = errors.New("window front end not compiled into this build")

func Available() bool {
	return false
}

func Run(context.Context, app.Config, *logging.Logger, func(*app.App)) error {
	return ErrUnavailable
}
