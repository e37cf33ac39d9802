package models

import (
	"fmt"
	"net/url"
)

// Book is an immutable reference record from the national library corpus.
type Book struct {
	ID       int64  `json:"id"`
	URN      string `json:"urn"`
	Title    string `json:"title"`
	Author   string `json:"author,omitempty"`
	Year     int    `json:"year,omitempty"`
	Category string `json:"category,omitempty"`
}

// DeepLink builds the external viewer URL for the book. When token is
// non-empty the viewer opens with that place name highlighted.
func (b Book) DeepLink(token string) string {
	u := fmt.Sprintf("https://www.nb.no/items/%s", url.PathEscape(b.URN))
	if token != "" {
		u += `?searchText="` + url.QueryEscape(token) + `"`
	}
	return u
}
