// Package main is the entry point for the docqa service.
package main

import (
	"github.com/kart-io/docqa/cmd/docqa/app"
)

func main() {
	app.NewApp().Run()
}
