// Command rango serves the Rango categories and pages site.
package main

import (
	"log"

	"github.com/patric-chuzhbe/rango/internal/app"
)

func main() {
	theApp, err := app.New()
	if err != nil {
		log.Fatal(err)
	}
	defer theApp.Close()

	if err := theApp.Run(); err != nil {
		log.Println(err)
	}
}
