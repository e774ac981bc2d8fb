// Package slug turns free-form names into identifiers: lowercase URL slugs
// for catalog entries and uppercase codes for SKUs.
package slug

import (
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"
)

// Letters, marks and digits of any script survive; everything else
// separates words.
var nonAlnum = regexp.MustCompile(`[^\p{L}\p{M}\p{N}]+`)

// Latin letters without a decomposition are folded by hand. Latin letters
// with a combining mark ("é", "ş", "ü") are handled by stripMarks.
var transliterator = strings.NewReplacer(
	"ı", "i", "ß", "ss", "æ", "ae", "œ", "oe", "ø", "o", "đ", "d", "ł", "l", "þ", "th",
)

// stripMarks drops combining marks that sit on Latin letters. Marks on other
// scripts ("й", "ё", Devanagari vowel signs) are part of the letter and kept.
func stripMarks(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	latin := false
	for _, r := range norm.NFD.String(s) {
		if unicode.Is(unicode.Mn, r) {
			if latin {
				continue
			}
		} else {
			latin = unicode.Is(unicode.Latin, r)
		}
		b.WriteRune(r)
	}
	return norm.NFC.String(b.String())
}

// Generate creates a URL-friendly slug from the given name. Latin letters
// are folded to ASCII; letters of other scripts are kept as they are, so a
// CJK name still yields a non-empty slug.
//
// Examples:
//   - "Kadın Giyim" → "kadin-giyim"
//   - "Crème Brûlée" → "creme-brulee"
//   - "Shoe Size (EU)" → "shoe-size-eu"
//   - "Hello   World!" → "hello-world"
func Generate(name string) string {
	s := stripMarks(transliterator.Replace(strings.ToLower(strings.TrimSpace(name))))
	s = nonAlnum.ReplaceAllString(s, "-")
	return strings.Trim(s, "-")
}

// Code returns the uppercase form of Generate. Runs of characters other than
// letters and digits collapse into a single hyphen.
//
//	Code("prd 001")  → "PRD-001"
//	Code("-Tişört-") → "TISORT"
func Code(name string) string {
	return strings.ToUpper(Generate(name))
}

// Token returns Code with every hyphen removed, so a multi-word value becomes
// one SKU segment. Values made only of punctuation or symbols yield "".
//
//	Token("Deep Blue") → "DEEPBLUE"
//	Token("10-12 yrs") → "1012YRS"
//	Token("Crème")     → "CREME"
func Token(name string) string {
	return strings.ReplaceAll(Code(name), "-", "")
}
