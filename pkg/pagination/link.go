package pagination

import (
	"net/url"
	"strings"
)

// TokenParam is the query parameter carrying the continuation token.
const TokenParam = "page_info"

// Token is an opaque continuation cursor. The empty token requests the first
// page.
type Token string

// Link is one entry of an RFC 8288 Link header.
type Link struct {
	URL string

	// Rel holds the lower-cased relation types of the entry.
	Rel []string
}

// HasRel reports whether rel is one of the link's relation types.
func (l Link) HasRel(rel string) bool {
	for _, r := range l.Rel {
		if r == strings.ToLower(rel) {
			return true
		}
	}
	return false
}

// ParseLinkHeader parses one or more Link header values into (url, rel)
// entries. Entries that do not start with a <uri-reference> are skipped.
func ParseLinkHeader(values ...string) []Link {
	var links []Link
	for _, v := range values {
		s := v
		for {
			s = strings.TrimLeft(s, " \t,")
			if s == "" {
				break
			}
			if s[0] != '<' {
				// Skip the malformed entry.
				next := strings.IndexByte(s, ',')
				if next < 0 {
					break
				}
				s = s[next+1:]
				continue
			}

			end := strings.IndexByte(s, '>')
			if end < 0 {
				break
			}
			link := Link{URL: strings.TrimSpace(s[1:end])}
			s = s[end+1:]

			params := s
			if next := strings.IndexByte(s, ','); next >= 0 {
				params, s = s[:next], s[next+1:]
			} else {
				s = ""
			}
			link.Rel = parseRel(params)
			links = append(links, link)
		}
	}
	return links
}

// parseRel extracts the rel parameter from `; rel="next"; title="x"`.
func parseRel(params string) []string {
	for _, p := range strings.Split(params, ";") {
		key, value, ok := strings.Cut(p, "=")
		if !ok || !strings.EqualFold(strings.TrimSpace(key), "rel") {
			continue
		}
		value = strings.Trim(strings.TrimSpace(value), `"`)
		return strings.Fields(strings.ToLower(value))
	}
	return nil
}

// NextToken returns the continuation token of the rel="next" entry. It
// reports false when there is no such entry or it carries no token.
func NextToken(values ...string) (Token, bool) {
	for _, link := range ParseLinkHeader(values...) {
		if !link.HasRel("next") {
			continue
		}
		u, err := url.Parse(link.URL)
		if err != nil {
			return "", false
		}
		token := u.Query().Get(TokenParam)
		if token == "" {
			return "", false
		}
		return Token(token), true
	}
	return "", false
}
