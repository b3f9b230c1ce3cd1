package fallback

import (
	"fmt"
	"math/rand"
	"strings"

	"github.com/nudgyapp/companion/src/aisdk"
)

// capturePrefixes mark inputs that are clearly a task to write down.
var capturePrefixes = []string{
	"remind me to ",
	"remind me ",
	"don't forget to ",
	"dont forget to ",
	"add ",
	"todo ",
	"i need to ",
	"i have to ",
}

// lookupWords mark inputs asking about the current list.
var lookupWords = []string{"what", "list", "due", "today", "left", "show", "pending"}

// greetingTokens are matched against the whole (normalized) input.
var greetingTokens = []string{"hi", "hey", "hello", "yo", "hiya", "good morning", "good evening", "morning"}

var greetingReplies = []string{
	"Hey! I'm running on backup power right now, but I'm listening.",
	"Hi there. My brain is a bit foggy at the moment, but your list is safe with me.",
	"Hello! I can still jot things down for you while the clever part of me is offline.",
}

const (
	lookupReply  = "I can't check the details right now, but nothing on your list has gone anywhere. Ask me again in a couple of minutes."
	defaultReply = "I'm having trouble thinking straight at the moment. I've kept your message and we can pick this up shortly."
)

// shortInputWords bounds how long an input can be and still be captured
// wholesale as an item.
const shortInputWords = 6

// KeywordResponder is the last tier of the chain: a fixed rule table that
// always answers. It never touches the network and never fails.
type KeywordResponder struct {
	rng *rand.Rand
}

// NewKeywordResponder creates the deterministic responder. A nil rng gets
// a fixed seed so replies are reproducible.
func NewKeywordResponder(rng *rand.Rand) *KeywordResponder {
	if rng == nil {
		rng = rand.New(rand.NewSource(1))
	}
	return &KeywordResponder{rng: rng}
}

// Respond maps the input to a reply using the rule table, first match
// wins: capture prefix, lookup phrasing, greeting, short input as item,
// then a generic holding reply.
func (k *KeywordResponder) Respond(input string) (string, []aisdk.SideEffect) {
	normalized := strings.ToLower(strings.TrimSpace(input))
	normalized = strings.TrimRight(normalized, ".!?")

	for _, prefix := range capturePrefixes {
		if strings.HasPrefix(normalized, prefix) {
			title := strings.TrimSpace(strings.TrimPrefix(normalized, prefix))
			if title == "" {
				break
			}
			return fmt.Sprintf("Got it. I've written down %q and it'll be on your list.", title),
				[]aisdk.SideEffect{{Kind: aisdk.EffectItemCreated, Title: title}}
		}
	}

	for _, token := range greetingTokens {
		if normalized == token {
			return greetingReplies[k.rng.Intn(len(greetingReplies))], nil
		}
	}

	for _, word := range lookupWords {
		if containsWord(normalized, word) {
			return lookupReply, nil
		}
	}

	if words := strings.Fields(normalized); len(words) > 0 && len(words) <= shortInputWords {
		title := strings.Join(words, " ")
		return fmt.Sprintf("Noted %q and added it to your list.", title),
			[]aisdk.SideEffect{{Kind: aisdk.EffectItemCreated, Title: title}}
	}

	return defaultReply, nil
}

func containsWord(s, word string) bool {
	for _, w := range strings.Fields(s) {
		if w == word {
			return true
		}
	}
	return false
}
