package parser

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/JakeFAU/prospekt-crawler/internal/clock/system"
	"github.com/JakeFAU/prospekt-crawler/internal/crawler"
	"github.com/JakeFAU/prospekt-crawler/internal/dom"
)

// FlyerExtractor reads flyer cards from shop detail pages.
type FlyerExtractor struct {
	sel    Selectors
	clock  crawler.Clock
	logger *zap.Logger
}

var _ crawler.RecordExtractor = (*FlyerExtractor)(nil)

// NewFlyerExtractor builds an extractor. A nil clock stamps records with UTC wall time.
func NewFlyerExtractor(sel Selectors, clock crawler.Clock, logger *zap.Logger) (*FlyerExtractor, error) {
	if logger == nil {
		return nil, crawler.ErrNoLogger
	}
	if clock == nil {
		clock = system.New()
	}
	return &FlyerExtractor{
		sel:    sel.WithDefaults(),
		clock:  clock,
		logger: logger,
	}, nil
}

// ForShop binds the extractor to one shop as a Parser.
func (e *FlyerExtractor) ForShop(shopName string) DetailPageParser {
	return DetailPageParser{shopName: shopName, extractor: e}
}

// ExtractRecords returns one record per flyer card in document order. A page
// without the flyer grid yields no records; a card missing its inner markup
// yields a record carrying only the shop name.
func (e *FlyerExtractor) ExtractRecords(body, shopName string) []crawler.FlyerRecord {
	if body == "" {
		return nil
	}
	doc, err := dom.Parse(body)
	if err != nil {
		e.logger.Warn("detail page unparsable", zap.String("shop", shopName), zap.Error(err))
		return nil
	}
	grid, ok := doc.First(e.sel.FlyerGrid)
	if !ok {
		e.logger.Debug("detail page has no flyer grid", zap.String("shop", shopName))
		return nil
	}

	cards := grid.FindAll(e.sel.Flyer)
	records := make([]crawler.FlyerRecord, 0, len(cards))
	for i, card := range cards {
		records = append(records, e.extractCard(card, shopName, i))
	}
	return records
}

func (e *FlyerExtractor) extractCard(card dom.Node, shopName string, index int) (rec crawler.FlyerRecord) {
	now := e.clock.Now()
	defer func() {
		if r := recover(); r != nil {
			e.logger.Warn("flyer card extraction panicked",
				zap.String("shop", shopName),
				zap.Int("index", index),
				zap.String("panic", fmt.Sprint(r)),
			)
			rec = crawler.NewFlyerRecord("", "", shopName, "", "", now)
		}
	}()

	var contents []dom.Node
	if desc, ok := card.First(e.sel.Description); ok {
		contents = desc.FindAll(e.sel.Content)
	}
	// A card needs both the title and the validity line.
	if len(contents) < 2 {
		e.logger.Debug("flyer card without complete description",
			zap.String("shop", shopName),
			zap.Int("index", index),
			zap.Int("content_nodes", len(contents)),
		)
		return crawler.NewFlyerRecord("", "", shopName, "", "", now)
	}

	title := contents[0].Text()
	var validFrom, validTo string
	if validity, ok := contents[1].First(e.sel.Validity); ok {
		validFrom, validTo = ParseDates(validity.Text())
	}
	return crawler.NewFlyerRecord(title, e.thumbnail(card), shopName, validFrom, validTo, now)
}

// thumbnail prefers src and falls back to the lazy-load data-src.
func (e *FlyerExtractor) thumbnail(card dom.Node) string {
	img, ok := card.First(e.sel.Thumbnail)
	if !ok {
		return ""
	}
	if src, _ := img.Attr("src"); src != "" {
		return src
	}
	src, _ := img.Attr("data-src")
	return src
}

// DetailPageParser is a FlyerExtractor bound to one shop.
type DetailPageParser struct {
	shopName  string
	extractor *FlyerExtractor
}

var _ Parser[[]crawler.FlyerRecord] = DetailPageParser{}

// ShopName returns the shop the parser stamps on records.
func (p DetailPageParser) ShopName() string {
	return p.shopName
}

// Parse extracts the shop's flyer records from body.
func (p DetailPageParser) Parse(body string) []crawler.FlyerRecord {
	return p.extractor.ExtractRecords(body, p.shopName)
}
