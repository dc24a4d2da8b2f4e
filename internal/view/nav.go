package view

import "strings"

type Page string

const (
	PageDashboard Page = "dashboard"
	PageIncoming  Page = "incoming"
	PageOutgoing  Page = "outgoing"
	PageProfile   Page = "profile"
)

var Pages = []Page{PageDashboard, PageIncoming, PageOutgoing, PageProfile}

// ParsePage maps a client route such as "/incoming" to its page. The empty
// route is the dashboard.
func ParsePage(route string) (Page, bool) {
	name := strings.Trim(route, "/")
	if name == "" {
		return PageDashboard, true
	}
	for _, page := range Pages {
		if string(page) == name {
			return page, true
		}
	}
	return "", false
}
