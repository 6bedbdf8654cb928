// Package keywords implements keyword expansion/contraction for the
// "keywords" magic property (spec.md §9 Glossary): $Id$, $Author$, $Date$,
// $Rev$ and their long-form aliases.
package keywords

import (
	"fmt"
	"regexp"
	"strings"
)

// Values supplies the substitution values for one expansion pass.
type Values struct {
	URL      string
	Author   string
	Date     string
	Revision string
}

var keywordPattern = regexp.MustCompile(`\$(Id|Author|Date|Rev|LastChangedBy|LastChangedDate|LastChangedRevision|HeadURL|URL)(:[^$]*)?\$`)

// ParseSet splits a "keywords" property value ("Id Author Date Rev") into
// the set of canonical keyword names it enables.
func ParseSet(value string) map[string]bool {
	set := make(map[string]bool)
	for _, tok := range strings.Fields(value) {
		switch strings.ToLower(tok) {
		case "id":
			set["Id"] = true
		case "author", "lastchangedby":
			set["Author"] = true
		case "date", "lastchangeddate":
			set["Date"] = true
		case "rev", "revision", "lastchangedrevision":
			set["Rev"] = true
		case "url", "headurl":
			set["URL"] = true
		}
	}
	return set
}

// Expand rewrites every "$Keyword$" or "$Keyword: ...$" occurrence whose
// canonical name is enabled in set with its current value; keywords not in
// set are left exactly as found (contracted or not).
func Expand(data []byte, set map[string]bool, v Values) []byte {
	if len(set) == 0 {
		return data
	}
	return keywordPattern.ReplaceAllFunc(data, func(m []byte) []byte {
		name := canonicalName(string(keywordPattern.FindSubmatch(m)[1]))
		if !set[name] {
			return m
		}
		return []byte(fmt.Sprintf("$%s: %s $", name, valueFor(name, v)))
	})
}

// Contract rewrites every expanded "$Keyword: ...$" back to its bare
// "$Keyword$" form, regardless of whether the keyword is currently enabled
// (mirrors svn's own behavior of always being able to strip values it
// previously wrote).
func Contract(data []byte) []byte {
	return keywordPattern.ReplaceAllFunc(data, func(m []byte) []byte {
		name := canonicalName(string(keywordPattern.FindSubmatch(m)[1]))
		return []byte(fmt.Sprintf("$%s$", name))
	})
}

func canonicalName(raw string) string {
	switch raw {
	case "LastChangedBy":
		return "Author"
	case "LastChangedDate":
		return "Date"
	case "LastChangedRevision":
		return "Rev"
	case "HeadURL":
		return "URL"
	default:
		return raw
	}
}

func valueFor(name string, v Values) string {
	switch name {
	case "Id":
		return fmt.Sprintf("%s %s %s %s", v.URL, v.Revision, v.Date, v.Author)
	case "Author":
		return v.Author
	case "Date":
		return v.Date
	case "Rev":
		return v.Revision
	case "URL":
		return v.URL
	default:
		return ""
	}
}
