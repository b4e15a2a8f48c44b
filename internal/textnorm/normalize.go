// Package textnorm turns arbitrary caption text into a script-independent
// search key: Han characters become pinyin with a trailing tone digit, kana
// become Hepburn romaji, everything is lowercased and joined with single
// spaces. The same key is used for search and for duplicate detection.
package textnorm

import (
	"strings"
	"unicode"

	"github.com/gojp/kana"
	"github.com/mozillazg/go-pinyin"
)

var pinyinArgs = func() pinyin.Args {
	a := pinyin.NewArgs()
	a.Style = pinyin.Tone3
	// Characters missing from the pinyin table pass through as-is.
	a.Fallback = func(r rune, a pinyin.Args) []string {
		return []string{strings.ToLower(string(r))}
	}
	return a
}()

// Normalize converts text into its canonical search key. It is a pure function
// and idempotent on its own output: normalizing an already-normalized string
// returns it unchanged.
func Normalize(text string) string {
	var out []string
	for _, seg := range segment(text) {
		if seg.han {
			out = append(out, pinyin.LazyPinyin(seg.text, pinyinArgs)...)
			continue
		}
		for _, word := range strings.Fields(seg.text) {
			if containsKana(word) {
				out = append(out, strings.ToLower(kanaToRomaji(word)))
			} else {
				out = append(out, strings.ToLower(word))
			}
		}
	}
	return strings.Join(out, " ")
}

// kanaToRomaji converts one kana word to Hepburn romaji. The library writes
// the moraic nasal ん/ン wapuro-style as "nn", so the word is converted in
// segments around it: Hepburn wants a single "n", with an apostrophe before a
// following vowel or y ("hon'ya"), so that "konnichiha" round-trips between
// kana and romaji queries.
func kanaToRomaji(word string) string {
	var b strings.Builder
	var seg []rune
	flush := func() {
		if len(seg) > 0 {
			b.WriteString(kana.KanaToRomaji(string(seg)))
			seg = seg[:0]
		}
	}
	runes := []rune(word)
	for i, r := range runes {
		if r != 'ん' && r != 'ン' {
			seg = append(seg, r)
			continue
		}
		flush()
		b.WriteString("n")
		if i+1 < len(runes) && beginsWithVowelOrY(runes[i+1]) {
			b.WriteString("'")
		}
	}
	flush()
	return b.String()
}

func beginsWithVowelOrY(r rune) bool {
	head := strings.ToLower(kana.KanaToRomaji(string(r)))
	return head != "" && strings.ContainsRune("aiueoy", rune(head[0]))
}

type run struct {
	text string
	han  bool
}

// segment splits text into maximal runs of Han and non-Han characters, so a
// mixed-script string breaks at script boundaries instead of merging.
func segment(text string) []run {
	var runs []run
	var cur strings.Builder
	curHan := false
	for _, r := range text {
		h := unicode.Is(unicode.Han, r)
		if cur.Len() > 0 && h != curHan {
			runs = append(runs, run{text: cur.String(), han: curHan})
			cur.Reset()
		}
		curHan = h
		cur.WriteRune(r)
	}
	if cur.Len() > 0 {
		runs = append(runs, run{text: cur.String(), han: curHan})
	}
	return runs
}

func containsKana(s string) bool {
	for _, r := range s {
		if unicode.In(r, unicode.Hiragana, unicode.Katakana) {
			return true
		}
	}
	return false
}
