// The main package for the flyercrawler executable.
//
// A run resolves one category page into shop links, fetches every shop's
// detail page concurrently through a shared colly transport, extracts flyer
// records on a bounded goroutine pool and writes them, in sidebar order, to a
// local JSON file or a gs:// object. Postgres storage, a Pub/Sub completion
// message and a Prometheus textfile export are enabled through configuration.
//
// Configuration comes from flags, FLYERS_* environment variables and an
// optional YAML file (--config), in that order of precedence.
package main

import (
	"github.com/JakeFAU/prospekt-crawler/cmd"
)

func main() {
	cmd.Execute()
}
