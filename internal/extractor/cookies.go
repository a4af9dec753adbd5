package extractor

import (
	"strings"

	"github.com/chromedp/cdproto/network"
)

// serializeCookies flattens a captured cookie jar into a single HTTP
// Cookie header value: name=value pairs joined by "; ", in the order
// the browser reported them.
func serializeCookies(cookies []*network.Cookie) string {
	if len(cookies) == 0 {
		return ""
	}
	var b strings.Builder
	for i, c := range cookies {
		if i > 0 {
			b.WriteString("; ")
		}
		b.WriteString(c.Name)
		b.WriteByte('=')
		b.WriteString(c.Value)
	}
	return b.String()
}
