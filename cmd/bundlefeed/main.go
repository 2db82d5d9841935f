package main

import (
	"os"

	"horse.fit/bundlefeed/internal/app"
)

func main() {
	os.Exit(app.Run(os.Args[1:]))
}
