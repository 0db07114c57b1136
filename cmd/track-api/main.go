package main

import (
	"context"
	"errors"

	"github.com/BearBump/TrackSync/internal/bootstrap"
)

func main() {
	app := mustBootstrapTrackAPI(bootstrap.DefaultFactories())
	defer app.Close()

	if err := app.Run(); err != nil && !errors.Is(err, context.Canceled) {
		panic(err)
	}
}
