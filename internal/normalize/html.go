package normalize

import (
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/microcosm-cc/bluemonday"
	"golang.org/x/net/html"
)

var allowedTags = []string{
	"p", "br", "b", "i", "em", "strong", "a", "img", "ul", "ol", "li",
	"h1", "h2", "h3", "h4", "h5", "h6", "blockquote", "pre", "code",
	"div", "span", "table", "thead", "tbody", "tr", "td", "th",
}

var allowedStyles = []string{
	"color", "background-color", "font-size", "font-family", "font-weight", "font-style",
	"text-align", "text-decoration", "line-height", "vertical-align",
	"margin", "margin-top", "margin-bottom", "margin-left", "margin-right",
	"padding", "padding-top", "padding-bottom", "padding-left", "padding-right",
	"border", "border-collapse", "width", "height", "max-width", "display",
}

const documentTemplate = `<!DOCTYPE html>
<html>
  <head>
    <meta charset="utf-8">
    <meta name="viewport" content="width=device-width, initial-scale=1">
    <style>
      body {
        margin: 0;
        padding: 0;
        font-family: -apple-system, BlinkMacSystemFont, 'Segoe UI', Roboto, Oxygen, Ubuntu, Cantarell, 'Open Sans', 'Helvetica Neue', sans-serif;
        width: 100%;
        height: 100%;
        overflow-y: auto;
      }
      table {
        width: 100%;
      }
      img {
        max-width: 100%;
        height: auto;
      }
    </style>
  </head>
  <body>
    {{content}}
  </body>
</html>`

var (
	emailPolicy    = newEmailPolicy()
	blankLinesRe   = regexp.MustCompile(`\n\s*\n+`)
	horizontalWsRe = regexp.MustCompile(`[ \t]+`)
)

// bluemonday policies are safe for concurrent use once built.
func newEmailPolicy() *bluemonday.Policy {
	p := bluemonday.NewPolicy()
	p.AllowElements(allowedTags...)

	p.AllowAttrs("class", "id").Globally()
	p.AllowStyles(allowedStyles...).Globally()

	p.AllowAttrs("src", "alt", "title", "width", "height").OnElements("img")
	p.AllowAttrs("href", "target", "rel").OnElements("a")
	p.AllowAttrs("colspan", "rowspan").OnElements("td")
	p.AllowAttrs("colspan", "rowspan", "scope").OnElements("th")

	p.AllowURLSchemes("http", "https", "mailto", "cid")
	p.AllowDataURIImages()
	p.RequireParseableURLs(true)
	return p
}

// SanitizeHTML strips everything outside the email allow-list.
func SanitizeHTML(body string) string {
	return emailPolicy.Sanitize(body)
}

// RenderDocument sanitizes body and wraps it in the reading pane document.
func RenderDocument(body string) string {
	return strings.Replace(documentTemplate, "{{content}}", SanitizeHTML(body), 1)
}

// PlainText extracts readable text from already sanitized HTML.
func PlainText(sanitized string) (string, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(sanitized))
	if err != nil {
		return "", err
	}

	doc.Find("script, style, head").Each(func(i int, el *goquery.Selection) {
		el.Remove()
	})

	text := doc.Find("body").Text()
	text = horizontalWsRe.ReplaceAllString(text, " ")
	text = blankLinesRe.ReplaceAllString(text, "\n")
	return strings.TrimSpace(text), nil
}

// DecodeEntities turns snippet entities such as &#39; into text.
func DecodeEntities(s string) string {
	return html.UnescapeString(s)
}
