// Package crawler holds the flyer crawl domain: the record and report types,
// the ports the orchestrator depends on (Transport, LinkDiscoverer,
// RecordExtractor, ResultSink, Publisher) and the Orchestrator that discovers
// shops on a category page, fetches their flyer pages concurrently and
// flattens the extracted records in discovery order.
package crawler
