package wcedit

import (
	"path/filepath"
	"strconv"

	"github.com/wcupdate/wcupdate/internal/entries"
	"github.com/wcupdate/wcupdate/internal/keywords"
)

// entryKeywordSource derives $Id$/$Author$/$Date$/$Rev$/$URL$ substitution
// values from the entries store, the natural source for them once an
// install has bumped an entry's committed-* fields (spec.md §4.7 step 4
// runs before the text integration step precisely so these values are
// already current by the time keyword expansion needs them).
type entryKeywordSource struct {
	Entries entries.Store
}

// NewKeywordSource builds a logjournal.KeywordSource backed by an entries
// store, for wiring into logjournal.NewRunner.
func NewKeywordSource(store entries.Store) *entryKeywordSource {
	return &entryKeywordSource{Entries: store}
}

func (s *entryKeywordSource) KeywordValues(path string) (keywords.Values, error) {
	dir := filepath.Dir(path)
	name := filepath.Base(path)
	snapshot, err := s.Entries.Read(dir)
	if err != nil {
		return keywords.Values{}, err
	}
	ent := snapshot[name]
	return keywords.Values{
		URL:      ent.URL,
		Author:   ent.CommittedAuthor,
		Date:     ent.CommittedDate,
		Revision: strconv.FormatInt(ent.CommittedRev, 10),
	}, nil
}
