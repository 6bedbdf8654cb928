// Package eol implements end-of-line translation between a file's
// repository-normalized form (always "\n") and its working-copy form,
// driven by the "eol-style" magic property (spec.md §9 Glossary).
package eol

import "bytes"

// Style is the normalized form of the eol-style property's value.
type Style string

const (
	StyleNone   Style = ""       // no translation: bytes pass through untouched
	StyleNative Style = "native" // translated as "\n" on every platform
	StyleLF     Style = "LF"
	StyleCRLF   Style = "CRLF"
	StyleCR     Style = "CR"
)

func bytesFor(style Style) []byte {
	switch style {
	case StyleCRLF:
		return []byte("\r\n")
	case StyleCR:
		return []byte("\r")
	case StyleLF, StyleNative:
		return []byte("\n")
	default:
		return nil
	}
}

// ToWorking translates normalized ("\n"-only) pristine text into the
// working-copy line-ending form for style. StyleNone is a no-op.
func ToWorking(data []byte, style Style) []byte {
	target := bytesFor(style)
	if target == nil || bytes.Equal(target, []byte("\n")) {
		return data
	}
	return bytes.ReplaceAll(data, []byte("\n"), target)
}

// ToNormalized reverses ToWorking: converts working-copy line endings back
// to the repository-normalized "\n" form for style. StyleNone is a no-op
// (the content is assumed already normalized, or translation is disabled).
func ToNormalized(data []byte, style Style) []byte {
	switch style {
	case StyleCRLF:
		return bytes.ReplaceAll(data, []byte("\r\n"), []byte("\n"))
	case StyleCR:
		return bytes.ReplaceAll(data, []byte("\r"), []byte("\n"))
	default:
		return data
	}
}

// ParseStyle normalizes the raw eol-style property value; unrecognized
// values map to StyleNone, matching svn's own tolerant behavior.
func ParseStyle(value string) Style {
	switch Style(value) {
	case StyleNative, StyleLF, StyleCRLF, StyleCR:
		return Style(value)
	default:
		return StyleNone
	}
}
