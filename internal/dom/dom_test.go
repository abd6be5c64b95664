package dom

import (
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/net/html"
)

const samplePage = `<!doctype html>
<html class="tag-hash-viz"><head><title>t</title></head>
<body>
  <article class="gh-content">
    <p>Price is $5 and <code>$x$</code></p>
    <div data-viz="echarts" id="chart-a"></div>
    <div data-viz="ricker"></div>
  </article>
</body></html>`

func mustParse(t *testing.T, s string) *Document {
	t.Helper()
	doc, err := ParseString(s)
	require.NoError(t, err)
	return doc
}

func TestDocument_Skeleton(t *testing.T) {
	doc := mustParse(t, samplePage)

	require.NotNil(t, doc.Root())
	require.NotNil(t, doc.Head())
	require.NotNil(t, doc.Body())
	assert.Equal(t, "html", doc.Root().Tag())
	assert.True(t, doc.Root().HasClass("tag-hash-viz"))
}

func TestDocument_QueryAllIsSnapshot(t *testing.T) {
	doc := mustParse(t, samplePage)

	els, err := doc.QueryAll("[data-viz]")
	require.NoError(t, err)
	require.Len(t, els, 2)
	assert.Equal(t, "chart-a", els[0].ID())

	// Inserting after the snapshot does not change it.
	extra := doc.CreateElement("div")
	extra.SetAttr("data-viz", "late")
	doc.Body().AppendChild(extra)
	assert.Len(t, els, 2)

	again, err := doc.QueryAll("[data-viz]")
	require.NoError(t, err)
	assert.Len(t, again, 3)
}

func TestDocument_InvalidSelector(t *testing.T) {
	doc := mustParse(t, samplePage)

	_, err := doc.QueryAll("[data-viz")
	require.Error(t, err)
	assert.False(t, doc.Exists("[data-viz"))
	require.Error(t, ValidSelector("div["))
	require.NoError(t, ValidSelector(".math, .math-inline"))
}

func TestDocument_ElementByIDAndHasTagWithAttr(t *testing.T) {
	doc := mustParse(t, samplePage)

	el := doc.ElementByID("chart-a")
	require.NotNil(t, el)
	v, ok := el.Attr("data-viz")
	assert.True(t, ok)
	assert.Equal(t, "echarts", v)
	assert.Nil(t, doc.ElementByID("missing"))

	link := doc.CreateElement("link")
	link.SetAttr("href", `https://cdn.example/a.css?x="1"`)
	doc.Head().AppendChild(link)
	assert.True(t, doc.HasTagWithAttr("link", "href", `https://cdn.example/a.css?x="1"`))
	assert.False(t, doc.HasTagWithAttr("script", "src", `https://cdn.example/a.css?x="1"`))
}

func TestElement_ClassesAndAttributes(t *testing.T) {
	doc := mustParse(t, `<div id="x" class="a b"></div>`)
	el := doc.ElementByID("x")

	el.AddClass("c")
	el.AddClass("a")
	el.RemoveClass("b")
	v, _ := el.Attr("class")
	assert.Equal(t, "a c", v)

	el.SetAttr("data-k", "1")
	el.SetAttr("data-k", "2")
	v, _ = el.Attr("data-k")
	assert.Equal(t, "2", v)
	el.RemoveAttr("data-k")
	assert.False(t, el.HasAttr("data-k"))
}

func TestElement_TreeEdits(t *testing.T) {
	doc := mustParse(t, `<body><pre><code class="language-mermaid">graph TD; A-->B;</code></pre></body>`)

	code, err := doc.Query("pre > code.language-mermaid")
	require.NoError(t, err)
	require.NotNil(t, code)

	pre := code.Closest("pre")
	require.NotNil(t, pre)

	div := doc.CreateElement("div")
	div.AddClass("mermaid")
	div.SetText(code.Text())
	pre.ReplaceWith(div)

	out := doc.String()
	assert.NotContains(t, out, "<pre>")
	assert.Contains(t, out, `<div class="mermaid">graph TD; A--&gt;B;</div>`)
}

func TestElement_PrependAndInnerHTML(t *testing.T) {
	doc := mustParse(t, `<body><p>one</p></body>`)

	bar := doc.CreateElement("div")
	bar.AddClass("bar")
	doc.Body().Prepend(bar)

	assert.True(t, strings.HasPrefix(doc.Body().InnerHTML(), `<div class="bar"></div>`))

	require.NoError(t, bar.SetInnerHTML(`<span class="x">hi</span>`))
	span, err := bar.Query("span.x")
	require.NoError(t, err)
	require.NotNil(t, span)
	assert.Equal(t, "hi", span.Text())
	assert.True(t, span.Parent().Same(bar))
}

func TestElement_RewriteTextSkipsTags(t *testing.T) {
	doc := mustParse(t, samplePage)
	content, err := doc.Query(".gh-content")
	require.NoError(t, err)

	var seen []string
	n := content.RewriteText([]string{"code"}, func(text string) []Fragment {
		if !strings.Contains(text, "$") {
			return nil
		}
		seen = append(seen, text)
		return []Fragment{
			{Text: "Price is "},
			{Tag: "span", Attrs: []html.Attribute{{Key: "class", Val: "m"}}, Text: "$5"},
			{Text: " and "},
		}
	})

	assert.Equal(t, 1, n)
	assert.Equal(t, []string{"Price is $5 and "}, seen)
	assert.Contains(t, doc.String(), `<span class="m">$5</span>`)
	assert.Contains(t, doc.String(), `<code>$x$</code>`)
}

func TestDocument_ConcurrentAttributeWrites(t *testing.T) {
	doc := mustParse(t, `<div id="x"></div>`)
	el := doc.ElementByID("x")

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			el.SetAttr("data-n", "v")
			_ = doc.String()
		}()
	}
	wg.Wait()

	v, ok := el.Attr("data-n")
	assert.True(t, ok)
	assert.Equal(t, "v", v)
}

func TestElement_Style(t *testing.T) {
	doc := mustParse(t, `<div id="m" style="height: 10px; color:red"></div>`)
	el := doc.ElementByID("m")

	v, ok := el.Style("color")
	assert.True(t, ok)
	assert.Equal(t, "red", v)

	el.SetStyle("height", "400px")
	el.SetStyle("display", "flex")

	style, _ := el.Attr("style")
	assert.Equal(t, "color:red; height: 400px; display: flex", style)
	_, ok = el.Style("width")
	assert.False(t, ok)
}
