package keywords

import "testing"

func TestParseSet(t *testing.T) {
	set := ParseSet("Id Author Date Rev URL")
	for _, name := range []string{"Id", "Author", "Date", "Rev", "URL"} {
		if !set[name] {
			t.Errorf("ParseSet: %s not enabled", name)
		}
	}

	aliases := ParseSet("LastChangedBy LastChangedDate LastChangedRevision HeadURL")
	for _, name := range []string{"Author", "Date", "Rev", "URL"} {
		if !aliases[name] {
			t.Errorf("ParseSet(aliases): %s not enabled", name)
		}
	}
}

func TestExpand(t *testing.T) {
	v := Values{URL: "https://svn/repo/trunk/f.txt", Author: "jrandom", Date: "2026-07-30", Revision: "42"}
	set := ParseSet("Id Rev")

	in := []byte("$Id$ $Rev$ $Author$\n")
	got := string(Expand(in, set, v))

	want := "$Id: https://svn/repo/trunk/f.txt 42 2026-07-30 jrandom $ $Rev: 42 $ $Author$\n"
	if got != want {
		t.Errorf("Expand = %q, want %q", got, want)
	}
}

func TestExpandLeavesDisabledKeywordsAlone(t *testing.T) {
	in := []byte("$Author: someone $\n")
	got := string(Expand(in, ParseSet(""), Values{}))
	if got != string(in) {
		t.Errorf("Expand with empty set = %q, want input unchanged %q", got, in)
	}
}

func TestContract(t *testing.T) {
	in := []byte("$Id: https://svn/repo/trunk/f.txt 42 2026-07-30 jrandom $ $Rev: 42 $\n")
	got := string(Contract(in))
	want := "$Id$ $Rev$\n"
	if got != want {
		t.Errorf("Contract = %q, want %q", got, want)
	}
}

func TestExpandContractRoundTrip(t *testing.T) {
	v := Values{URL: "u", Author: "a", Date: "d", Revision: "1"}
	set := ParseSet("Id")
	in := []byte("plain text $Id$ more text\n")

	expanded := Expand(in, set, v)
	contracted := Contract(expanded)
	if string(contracted) != string(in) {
		t.Errorf("round trip = %q, want %q", contracted, in)
	}
}
