// Package scraper downloads the result pages of a meet.
//
// A meet source may carry the URL its file was saved from. The scraper
// fetches each such page, checks that a result parser recognizes it and
// writes it to the source's file path, so a meet can be loaded again from
// the published pages.
package scraper
