package server

import "testing"

func TestWordSourcesMapping(t *testing.T) {
	cases := []struct {
		language string
		script   string
		first    wordSource
		count    int
	}{
		{"english", scriptDefault, srcEnglish, 1},
		{"english", scriptNative, srcEnglish, 1},
		{"hindi", scriptEnglish, srcEnglish, 1},
		{"hindi", scriptRoman, srcEnglish, 1},
		{"hindi", scriptDefault, srcRoman, 3},
		{"hindi", scriptNative, srcNative, 3},
	}
	for _, tc := range cases {
		sources := wordSources(tc.language, tc.script)
		if len(sources) != tc.count {
			t.Fatalf("wordSources(%s, %s) has %d sources, want %d", tc.language, tc.script, len(sources), tc.count)
		}
		if sources[0] != tc.first {
			t.Fatalf("wordSources(%s, %s) starts with %d, want %d", tc.language, tc.script, sources[0], tc.first)
		}
		if sources[len(sources)-1] != srcEnglish {
			t.Fatalf("wordSources(%s, %s) must end at the English fallback", tc.language, tc.script)
		}
	}
}

func TestPickFromPoolFiltersUsedWords(t *testing.T) {
	words := pickFromPool(lastResortWords, []string{"tree", "house"}, 3)
	if len(words) != 3 {
		t.Fatalf("got %d words, want 3", len(words))
	}
	for _, word := range words {
		if word == "tree" || word == "house" {
			t.Fatalf("used word %q came back", word)
		}
	}
}

func TestPickFromPoolRecyclesWhenExhausted(t *testing.T) {
	words := pickFromPool(lastResortWords, lastResortWords, 3)
	if len(words) != 3 {
		t.Fatalf("got %d words, want 3 even with everything used", len(words))
	}
}
