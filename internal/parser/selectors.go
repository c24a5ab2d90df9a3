package parser

// Selectors holds the CSS selectors used against the site's markup. Empty
// fields fall back to DefaultSelectors.
type Selectors struct {
	Sidebar      string `mapstructure:"sidebar"`
	SidebarLinks string `mapstructure:"sidebar_links"`
	FlyerGrid    string `mapstructure:"flyer_grid"`
	Flyer        string `mapstructure:"flyer"`
	Description  string `mapstructure:"description"`
	Content      string `mapstructure:"content"`
	Validity     string `mapstructure:"validity"`
	Thumbnail    string `mapstructure:"thumbnail"`
}

// DefaultSelectors matches the current prospektmaschine.de layout.
func DefaultSelectors() Selectors {
	return Selectors{
		Sidebar:      "#sidebar",
		SidebarLinks: "li a",
		FlyerGrid:    ".letaky-grid",
		Flyer:        ".brochure-thumb",
		Description:  ".letak-description",
		Content:      ".grid-item-content",
		Validity:     ".visible-sm",
		Thumbnail:    "picture img",
	}
}

// WithDefaults fills every empty selector from DefaultSelectors.
func (s Selectors) WithDefaults() Selectors {
	d := DefaultSelectors()
	fill := func(v *string, def string) {
		if *v == "" {
			*v = def
		}
	}
	fill(&s.Sidebar, d.Sidebar)
	fill(&s.SidebarLinks, d.SidebarLinks)
	fill(&s.FlyerGrid, d.FlyerGrid)
	fill(&s.Flyer, d.Flyer)
	fill(&s.Description, d.Description)
	fill(&s.Content, d.Content)
	fill(&s.Validity, d.Validity)
	fill(&s.Thumbnail, d.Thumbnail)
	return s
}
