package hallucination

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestKeepDropsHighNoSpeechProb(t *testing.T) {
	require.False(t, Keep(Utterance{Text: "hello world", NoSpeechProb: 0.8}, false))
}

func TestKeepDropsBlacklistedArtefacts(t *testing.T) {
	cases := []string{"[MUSIC]", "(applause)", "   ", "---", "Typing"}
	for _, text := range cases {
		require.False(t, Keep(Utterance{Text: text, NoSpeechProb: 0.1}, false), text)
	}
}

func TestKeepDropsSolePhantomThankYou(t *testing.T) {
	require.False(t, Keep(Utterance{Text: "Thank you.", NoSpeechProb: 0.1}, true))
	require.True(t, Keep(Utterance{Text: "Thank you.", NoSpeechProb: 0.1}, false))
}

func TestKeepRetainsRealSpeech(t *testing.T) {
	require.True(t, Keep(Utterance{Text: "hello world", NoSpeechProb: 0.1}, false))
}

func TestScenarioS2(t *testing.T) {
	utterances := []Utterance{
		{Text: "MUSIC", NoSpeechProb: 0.8},
		{Text: "hello world", NoSpeechProb: 0.1},
	}
	var kept []string
	for _, u := range utterances {
		if Keep(u, len(utterances) == 1) {
			kept = append(kept, u.Text)
		}
	}
	require.Equal(t, []string{"hello world"}, kept)
}
