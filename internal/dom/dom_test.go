package dom

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const page = `<html><body>
<div id="sidebar"><ul>
  <li><a href="/kaufland/">  Kaufland </a></li>
  <li><a href="/lidl/">Lidl</a></li>
</ul></div>
<img class="thumb" data-src="lazy.jpg">
</body></html>`

func TestFirstAndFindAll(t *testing.T) {
	t.Parallel()

	doc, err := Parse(page)
	require.NoError(t, err)

	sidebar, ok := doc.First("#sidebar")
	require.True(t, ok)
	links := sidebar.FindAll("li a")
	require.Len(t, links, 2)
	assert.Equal(t, "Kaufland", links[0].Text())
	href, ok := links[1].Attr("href")
	assert.True(t, ok)
	assert.Equal(t, "/lidl/", href)
}

func TestMissingStructure(t *testing.T) {
	t.Parallel()

	doc, err := Parse(page)
	require.NoError(t, err)

	_, ok := doc.First(".letaky-grid")
	assert.False(t, ok)
	assert.Empty(t, doc.FindAll(".brochure-thumb"))

	img, ok := doc.First("img.thumb")
	require.True(t, ok)
	_, ok = img.Attr("src")
	assert.False(t, ok)
	lazy, ok := img.Attr("data-src")
	assert.True(t, ok)
	assert.Equal(t, "lazy.jpg", lazy)
}

func TestParseToleratesGarbage(t *testing.T) {
	t.Parallel()

	doc, err := Parse("<<<not html")
	require.NoError(t, err)
	_, ok := doc.First("#sidebar")
	assert.False(t, ok)

	empty, err := Parse("")
	require.NoError(t, err)
	assert.Empty(t, empty.Text())
}
