package wcedit

import "strings"

// Entry-prop names the editor understands, mapped to entries-store fields
// (spec.md §4.3 step 4 / §4.7 step 4).
const (
	entryPropLastAuthor   = "svn:entry:last-author"
	entryPropCommittedRev = "svn:entry:committed-rev"
	entryPropCommitDate   = "svn:entry:committed-date"
	entryPropUUID         = "svn:entry:uuid"
)

const wcPropPrefix = "svn:wc:"

// Magic regular properties: changing any of these forces retranslation of
// the working file (spec.md §9 Glossary, §4.7 step 6 matrix row 4).
const (
	propExecutable = "svn:executable"
	propKeywords   = "svn:keywords"
	propEOLStyle   = "svn:eol-style"
)

func isEntryPropName(name string) bool {
	switch name {
	case entryPropLastAuthor, entryPropCommittedRev, entryPropCommitDate, entryPropUUID:
		return true
	default:
		return false
	}
}

func isWCPropName(name string) bool {
	return strings.HasPrefix(name, wcPropPrefix)
}

func isMagicPropName(name string) bool {
	switch name {
	case propExecutable, propKeywords, propEOLStyle:
		return true
	default:
		return false
	}
}
