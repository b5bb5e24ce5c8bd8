// Command partsbot runs the car-parts storefront bot.
package main

import (
	"log"

	"github.com/m3rciful/partsbot/core/cmd"
	"github.com/m3rciful/partsbot/storefront/app"
	"github.com/m3rciful/partsbot/storefront/config"
)

func main() {
	err := cmd.Run(cmd.Options{
		DefaultConfigPath: config.DefaultPath,
		LoadConfig: func(path string) (cmd.ConfigCarrier, error) {
			return config.Load(path)
		},
		Bootstrap: app.Bootstrap,
	})
	if err != nil {
		log.Fatal(err)
	}
}
