package textnorm

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalize_Empty(t *testing.T) {
	assert.Equal(t, "", Normalize(""))
	assert.Equal(t, "", Normalize("   "))
}

func TestNormalize_Latin(t *testing.T) {
	assert.Equal(t, "hello world", Normalize("Hello  World"))
	assert.Equal(t, "hello world", Normalize("  Hello World  "))
}

func TestNormalize_Han(t *testing.T) {
	assert.Equal(t, "ni3 hao3", Normalize("你好"))
}

func TestNormalize_Kana(t *testing.T) {
	assert.Equal(t, "sakura", Normalize("さくら"))
	assert.Equal(t, "kamera", Normalize("カメラ"))
}

func TestNormalize_MoraicNasal(t *testing.T) {
	// ん is a single Hepburn "n", never the wapuro "nn".
	assert.Equal(t, "konnichiha", Normalize("こんにちは"))
	assert.Equal(t, "pan", Normalize("パン"))
	// ん before な-row stays a plain "n" next to the following consonant.
	assert.Equal(t, "konna", Normalize("こんな"))
	// Before a vowel or y an apostrophe keeps the nasal distinct.
	assert.Equal(t, "hon'ya", Normalize("ほんや"))
}

func TestNormalize_MixedScripts(t *testing.T) {
	// Han place name + English word + kana word decompose into separate
	// tokens joined by single spaces.
	assert.Equal(t, "ni3 hao3 hello sakura", Normalize("你好 Hello さくら"))
	// Scripts split at boundaries even without whitespace between them.
	assert.Equal(t, "ni3 hao3 hello", Normalize("你好Hello"))
}

func TestNormalize_NonLinguistic(t *testing.T) {
	assert.Equal(t, "123 !?", Normalize("123 !?"))
	assert.Equal(t, "🎉", Normalize("🎉"))
}

func TestNormalize_Idempotent(t *testing.T) {
	inputs := []string{
		"",
		"Hello World",
		"你好",
		"さくら",
		"你好 Hello さくら",
		"カメラ 123 !?",
		"你好Hello",
		"こんにちは",
		"ほんや",
	}
	for _, s := range inputs {
		once := Normalize(s)
		assert.Equal(t, once, Normalize(once), "input %q", s)
	}
}

func TestNormalize_Deterministic(t *testing.T) {
	const s = "你好 Hello さくら"
	first := Normalize(s)
	for i := 0; i < 10; i++ {
		assert.Equal(t, first, Normalize(s))
	}
}
