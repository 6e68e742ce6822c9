package models

// Page is the crawled content of one URL, possibly aggregated from several
// linked sub-pages.
type Page struct {
	URL     string `json:"url"`
	Content string `json:"content"`
	Sources int    `json:"sources"`
}
