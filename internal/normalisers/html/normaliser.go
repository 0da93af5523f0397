package html

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"html"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/PuerkitoBio/goquery"
	xhtml "golang.org/x/net/html"
	"golang.org/x/net/html/charset"

	"github.com/custodia-labs/vendorscope/internal/core/domain"
	"github.com/custodia-labs/vendorscope/internal/core/ports/driven"
	"github.com/custodia-labs/vendorscope/internal/logger"
)

// Ensure Normaliser implements the interface.
var _ driven.PageNormaliser = (*Normaliser)(nil)

// boilerplate lists elements removed before text extraction.
const boilerplate = "script,style,noscript,template,svg,nav,footer,header"

// Normaliser handles HTML pages.
type Normaliser struct{}

// New creates a new HTML normaliser.
func New() *Normaliser {
	return &Normaliser{}
}

// SupportedMIMETypes returns the MIME types this normaliser handles.
func (n *Normaliser) SupportedMIMETypes() []string {
	return []string{"text/html", "application/xhtml+xml", "text/plain"}
}

// Normalise extracts title, cleaned text and links from a page body and
// computes the URL and content hashes. pageURL must already be canonical.
func (n *Normaliser) Normalise(pageURL string, body []byte, contentType string) (*domain.NormalisedPage, error) {
	if pageURL == "" {
		return nil, domain.ErrInvalidInput
	}

	var page *domain.NormalisedPage
	if strings.HasPrefix(strings.ToLower(contentType), "text/plain") {
		page = &domain.NormalisedPage{CleanedText: joinLines(strings.Split(string(body), "\n"))}
	} else {
		var err error
		page, err = parse(body, contentType)
		if err != nil {
			perr := &domain.ParseError{URL: pageURL, Err: err}
			logger.Debug("%v; falling back to raw text", perr)
			raw := string(body)
			page = &domain.NormalisedPage{
				Title:       extractHTMLTitle(raw),
				CleanedText: stripHTML(raw),
				Degraded:    true,
			}
		}
	}

	page.URLHash = Hash(pageURL)
	page.ContentHash = Hash(page.CleanedText)
	return page, nil
}

// Hash returns the hex SHA-256 of s. It is used for equality only.
func Hash(s string) string {
	sum := sha256.Sum256([]byte(s))
	return hex.EncodeToString(sum[:])
}

func parse(body []byte, contentType string) (*domain.NormalisedPage, error) {
	enc, _, _ := charset.DetermineEncoding(body, contentType)
	utf8data, err := enc.NewDecoder().Bytes(body)
	if err != nil {
		if !utf8.Valid(body) {
			return nil, err
		}
		utf8data = body
	}

	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(utf8data))
	if err != nil {
		return nil, err
	}

	page := &domain.NormalisedPage{
		Title: collapse(doc.Find("title").First().Text()),
	}

	doc.Find("a[href]").Each(func(_ int, s *goquery.Selection) {
		if href, ok := s.Attr("href"); ok {
			page.Links = append(page.Links, strings.TrimSpace(href))
		}
	})

	doc.Find(boilerplate).Remove()

	root := doc.Find("body")
	if root.Length() == 0 {
		root = doc.Selection
	}
	var lines []string
	for _, node := range root.Nodes {
		lines = appendText(lines, node)
	}
	page.CleanedText = strings.Join(lines, "\n")
	return page, nil
}

// appendText walks n depth-first and appends every non-empty,
// whitespace-collapsed text node.
func appendText(lines []string, n *xhtml.Node) []string {
	if n.Type == xhtml.TextNode {
		if text := collapse(n.Data); text != "" {
			lines = append(lines, text)
		}
		return lines
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		lines = appendText(lines, c)
	}
	return lines
}

var whitespace = regexp.MustCompile(`\s+`)

func collapse(s string) string {
	return strings.TrimSpace(whitespace.ReplaceAllString(s, " "))
}

func joinLines(lines []string) string {
	out := make([]string, 0, len(lines))
	for _, l := range lines {
		if l = collapse(l); l != "" {
			out = append(out, l)
		}
	}
	return strings.Join(out, "\n")
}

// Regular expressions for the degraded raw-text path.
var (
	titleTag          = regexp.MustCompile(`(?is)<title[^>]*>(.*?)</title>`)
	scriptTag         = regexp.MustCompile(`(?is)<script[^>]*>.*?</script>`)
	styleTag          = regexp.MustCompile(`(?is)<style[^>]*>.*?</style>`)
	noscriptTag       = regexp.MustCompile(`(?is)<noscript[^>]*>.*?</noscript>`)
	headTag           = regexp.MustCompile(`(?is)<head[^>]*>.*?</head>`)
	chromeTag         = regexp.MustCompile(`(?is)<(nav|header|footer|svg)[^>]*>.*?</(nav|header|footer|svg)>`)
	htmlComments      = regexp.MustCompile(`(?s)<!--.*?-->`)
	blockElements     = regexp.MustCompile(`(?i)</(p|div|br|hr|h[1-6]|li|tr|blockquote|pre|table|section|article)>`)
	openBlockElements = regexp.MustCompile(`(?i)<(p|div|h[1-6]|li|tr|blockquote|pre|table|section|article)[^>]*>`)
	brTags            = regexp.MustCompile(`(?i)<br\s*/?>`)
	allTags           = regexp.MustCompile(`<[^>]+>`)
)

// extractHTMLTitle finds a <title> without parsing the document.
func extractHTMLTitle(content string) string {
	matches := titleTag.FindStringSubmatch(content)
	if len(matches) > 1 {
		return collapse(html.UnescapeString(matches[1]))
	}
	return ""
}

// stripHTML removes tags from content that could not be parsed and
// returns its text one line per block.
func stripHTML(content string) string {
	content = scriptTag.ReplaceAllString(content, "")
	content = styleTag.ReplaceAllString(content, "")
	content = noscriptTag.ReplaceAllString(content, "")
	content = headTag.ReplaceAllString(content, "")
	content = chromeTag.ReplaceAllString(content, "")
	content = htmlComments.ReplaceAllString(content, "")

	content = openBlockElements.ReplaceAllString(content, "\n")
	content = blockElements.ReplaceAllString(content, "\n")
	content = brTags.ReplaceAllString(content, "\n")
	content = allTags.ReplaceAllString(content, "")
	content = html.UnescapeString(content)

	return joinLines(strings.Split(content, "\n"))
}
