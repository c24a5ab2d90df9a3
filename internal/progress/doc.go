// Package progress provides crawl milestone events and a non-blocking Hub that
// batches them on a background goroutine and fans them out to pluggable sinks
// such as structured logs or Prometheus collectors.
package progress
