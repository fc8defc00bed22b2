package schema

import (
	"golang.org/x/exp/maps"
	"golang.org/x/exp/slices"
)

// Kind is the URL segment identifying a game type.
type Kind string

const (
	Quiz        Kind = "quiz"
	TrueOrFalse Kind = "true-or-false"
	GroupSort   Kind = "group-sort"
	Anagram     Kind = "anagram"
	WordSearch  Kind = "word-search"
	MatchUp     Kind = "match-up"
	MemoryGame  Kind = "memory-game"
)

// embedIDs maps a kind to the identifier the game page resolves to a bundle
// address. Group sort has no bundle.
var embedIDs = map[Kind]string{
	Quiz:        "quiz",
	TrueOrFalse: "trueOrFalse",
	GroupSort:   "groupSort",
	Anagram:     "anagram",
	WordSearch:  "wordSearch",
	MatchUp:     "matchUp",
	MemoryGame:  "memoryGame",
}

func ParseKind(s string) (Kind, bool) {
	k := Kind(s)
	return k, k.Valid()
}

func (k Kind) Valid() bool {
	_, ok := embedIDs[k]
	return ok
}

func (k Kind) EmbedID() string {
	return embedIDs[k]
}

// Path is the slug path the portal stores for a game object.
func (k Kind) Path(slug string) string {
	return "/" + string(k) + "/" + slug
}

func Kinds() []Kind {
	kinds := maps.Keys(embedIDs)
	slices.Sort(kinds)
	return kinds
}
