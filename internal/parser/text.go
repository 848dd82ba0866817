package parser

import (
	"bytes"
	"regexp"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

var (
	relayLetterRe = regexp.MustCompile(`^(.*?)\s*['"]([A-Z])['"]$`)
	digitsRe      = regexp.MustCompile(`^\d+`)
)

// clean trims s and collapses inner whitespace. Non-breaking spaces count
// as whitespace.
func clean(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// number reads the leading integer of s ("3", "3.", "3rd"), or 0.
func number(s string) int {
	d := digitsRe.FindString(clean(s))
	if d == "" {
		return 0
	}
	n, err := strconv.Atoi(d)
	if err != nil {
		return 0
	}
	return n
}

func looksLikeHTML(content []byte) bool {
	head := bytes.ToLower(content)
	if len(head) > 4096 {
		head = head[:4096]
	}
	for _, tag := range []string{"<html", "<body", "<table", "<pre", "<!doctype", "<p", "<div"} {
		if bytes.Contains(head, []byte(tag)) {
			return true
		}
	}
	return false
}

// plainText returns the text of content, unwrapping <pre> blocks of HTML
// pages.
func plainText(content []byte) string {
	if !looksLikeHTML(content) {
		return string(content)
	}

	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(content))
	if err != nil {
		return string(content)
	}

	pre := doc.Find("pre")
	if pre.Length() == 0 {
		return doc.Text()
	}

	var parts []string
	pre.Each(func(_ int, sel *goquery.Selection) {
		parts = append(parts, sel.Text())
	})
	return strings.Join(parts, "\n")
}

// cellText returns the link text of a cell when it has one, else its text.
func cellText(cell *goquery.Selection) string {
	if link := cell.Find("a").First(); link.Length() > 0 {
		if t := clean(link.Text()); t != "" {
			return t
		}
	}
	return clean(cell.Text())
}

// rowText joins the cells of a row for rejection messages.
func rowText(cells *goquery.Selection) string {
	var parts []string
	cells.Each(func(_ int, c *goquery.Selection) {
		parts = append(parts, clean(c.Text()))
	})
	return strings.Join(parts, " | ")
}

func isRelayEvent(title string) bool {
	return strings.Contains(strings.ToLower(title), "relay")
}

// splitRelayLetter splits "Fort Collins 'A'" into the name and team letter.
func splitRelayLetter(s string) (string, string) {
	if m := relayLetterRe.FindStringSubmatch(s); m != nil {
		return clean(m[1]), m[2]
	}
	return s, ""
}

// relayMembers reads list items of a relay cell as legs in order.
func relayMembers(cell *goquery.Selection) []Member {
	var members []Member
	cell.Find("li").Each(func(i int, li *goquery.Selection) {
		if name := cellText(li); name != "" {
			members = append(members, Member{Name: name, Leg: i + 1})
		}
	})
	return members
}
