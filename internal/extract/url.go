package extract

import (
	"net/url"
	"strings"
)

// paperHosts are sites whose pages are treated as papers.
var paperHosts = []string{
	"arxiv.org",
	"scholar.google.com",
	"nature.com",
	"science.org",
	"springer.com",
	"ieeexplore.ieee.org",
	"acm.org",
}

// IsPaperURL reports whether raw points at a known paper host or one of its subdomains.
func IsPaperURL(raw string) bool {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") {
		return false
	}
	host := strings.ToLower(u.Hostname())
	for _, h := range paperHosts {
		if host == h || strings.HasSuffix(host, "."+h) {
			return true
		}
	}
	return false
}
