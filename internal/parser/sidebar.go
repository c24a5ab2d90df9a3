package parser

import (
	"fmt"
	"net/url"

	"go.uber.org/zap"

	"github.com/JakeFAU/prospekt-crawler/internal/crawler"
	"github.com/JakeFAU/prospekt-crawler/internal/dom"
)

// MainPageParser reads the category page sidebar into shop detail links.
type MainPageParser struct {
	base   *url.URL
	sel    Selectors
	logger *zap.Logger
}

var (
	_ Parser[*crawler.LinkMap] = (*MainPageParser)(nil)
	_ crawler.LinkDiscoverer   = (*MainPageParser)(nil)
)

// NewMainPageParser resolves sidebar hrefs against baseURL.
func NewMainPageParser(baseURL string, sel Selectors, logger *zap.Logger) (*MainPageParser, error) {
	if logger == nil {
		return nil, crawler.ErrNoLogger
	}
	base, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("parse base url %q: %w", baseURL, err)
	}
	return &MainPageParser{
		base:   base,
		sel:    sel.WithDefaults(),
		logger: logger,
	}, nil
}

// DiscoverLinks implements crawler.LinkDiscoverer.
func (p *MainPageParser) DiscoverLinks(body string) *crawler.LinkMap {
	return p.Parse(body)
}

// Parse returns shop name → absolute detail URL in sidebar order. Anchors with
// no text or href are skipped and repeated names keep their first URL.
func (p *MainPageParser) Parse(body string) *crawler.LinkMap {
	links := crawler.NewLinkMap()
	doc, err := dom.Parse(body)
	if err != nil {
		p.logger.Warn("category page unparsable", zap.Error(err))
		return links
	}
	sidebar, ok := doc.First(p.sel.Sidebar)
	if !ok {
		p.logger.Warn("category page has no sidebar", zap.String("selector", p.sel.Sidebar))
		return links
	}

	for _, a := range sidebar.FindAll(p.sel.SidebarLinks) {
		name := a.Text()
		href, ok := a.Attr("href")
		if name == "" || !ok || href == "" {
			continue
		}
		ref, err := url.Parse(href)
		if err != nil {
			p.logger.Debug("skipping malformed href", zap.String("shop", name), zap.String("href", href), zap.Error(err))
			continue
		}
		if !links.Add(name, p.base.ResolveReference(ref).String()) {
			p.logger.Debug("duplicate shop link ignored", zap.String("shop", name), zap.String("href", href))
		}
	}
	return links
}
