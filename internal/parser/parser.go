// Package parser turns prospektmaschine.de pages into crawl data: the category
// sidebar into a LinkMap and shop detail pages into flyer records.
package parser

// Parser converts a page body into T. Implementations never fail; missing or
// malformed markup yields the zero-content value for T.
type Parser[T any] interface {
	Parse(body string) T
}
