// Package sentiment scores comment text with a valence lexicon and turns a
// comment table into a fixed set of Plotly charts.
package sentiment

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// Lexicon holds word valences and the modifiers that shift them.
type Lexicon struct {
	// Valence maps a lowercase word to a score in roughly [-4, 4].
	Valence map[string]float64
	// Negations flip the valence of the words following them.
	Negations map[string]bool
	// Boosters increase (positive) or dampen (negative) intensity.
	Boosters map[string]float64
}

// lexiconFile is the YAML override format.
type lexiconFile struct {
	// Replace discards the built-in lexicon instead of extending it.
	Replace   bool               `yaml:"replace"`
	Valence   map[string]float64 `yaml:"valence"`
	Negations []string           `yaml:"negations"`
	Boosters  map[string]float64 `yaml:"boosters"`
}

// DefaultLexicon returns a copy of the built-in lexicon.
func DefaultLexicon() *Lexicon {
	l := &Lexicon{
		Valence:   make(map[string]float64, len(builtinValence)),
		Negations: make(map[string]bool, len(builtinNegations)),
		Boosters:  make(map[string]float64, len(builtinBoosters)),
	}
	for w, v := range builtinValence {
		l.Valence[w] = v
	}
	for _, w := range builtinNegations {
		l.Negations[w] = true
	}
	for w, v := range builtinBoosters {
		l.Boosters[w] = v
	}
	return l
}

// LoadLexicon reads a YAML override file and applies it to the built-in
// lexicon. An empty path returns the built-in lexicon.
func LoadLexicon(path string) (*Lexicon, error) {
	if path == "" {
		return DefaultLexicon(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading lexicon: %w", err)
	}
	return ParseLexicon(data)
}

// ParseLexicon applies YAML overrides to the built-in lexicon.
func ParseLexicon(data []byte) (*Lexicon, error) {
	var f lexiconFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parsing lexicon: %w", err)
	}

	l := DefaultLexicon()
	if f.Replace {
		l = &Lexicon{
			Valence:   map[string]float64{},
			Negations: map[string]bool{},
			Boosters:  map[string]float64{},
		}
	}
	for w, v := range f.Valence {
		if v < -4 || v > 4 {
			return nil, fmt.Errorf("valence for %q out of range [-4, 4]: %v", w, v)
		}
		l.Valence[strings.ToLower(w)] = v
	}
	for _, w := range f.Negations {
		l.Negations[strings.ToLower(w)] = true
	}
	for w, v := range f.Boosters {
		l.Boosters[strings.ToLower(w)] = v
	}
	if len(l.Valence) == 0 {
		return nil, fmt.Errorf("lexicon has no valence entries")
	}
	return l, nil
}

var builtinNegations = []string{
	"not", "no", "never", "none", "nobody", "nothing", "neither", "nor",
	"nowhere", "cannot", "cant", "can't", "dont", "don't", "doesnt",
	"doesn't", "didnt", "didn't", "isnt", "isn't", "wasnt", "wasn't",
	"arent", "aren't", "werent", "weren't", "wont", "won't", "wouldnt",
	"wouldn't", "shouldnt", "shouldn't", "aint", "ain't", "hardly", "barely",
	"without",
}

var builtinBoosters = map[string]float64{
	"absolutely": 0.293, "amazingly": 0.293, "completely": 0.293,
	"deeply": 0.293, "especially": 0.293, "extremely": 0.293,
	"highly": 0.293, "incredibly": 0.293, "really": 0.293, "so": 0.293,
	"super": 0.293, "too": 0.293, "totally": 0.293, "truly": 0.293,
	"very": 0.293, "most": 0.293, "more": 0.293,
	"almost": -0.293, "barely": -0.293, "kinda": -0.293, "kindof": -0.293,
	"less": -0.293, "little": -0.293, "marginally": -0.293,
	"occasionally": -0.293, "partly": -0.293, "slightly": -0.293,
	"somewhat": -0.293, "sorta": -0.293,
}

var builtinValence = map[string]float64{
	// positive
	"amazing": 2.8, "awesome": 3.1, "beautiful": 2.9, "best": 3.2,
	"brilliant": 2.8, "clear": 1.6, "cool": 1.3, "cute": 2.0,
	"enjoy": 2.2, "enjoyed": 2.3, "excellent": 2.7, "fantastic": 2.6,
	"favorite": 2.0, "fun": 2.3, "funny": 1.9, "glad": 2.0, "good": 1.9,
	"great": 3.1, "happy": 2.7, "helpful": 1.8, "incredible": 2.5,
	"informative": 1.6, "inspiring": 2.4, "interesting": 1.7,
	"legend": 2.1, "like": 1.5, "liked": 1.8, "lol": 1.8, "love": 3.2,
	"loved": 2.9, "lovely": 2.8, "masterpiece": 3.0, "nice": 1.8,
	"perfect": 2.7, "recommend": 1.5, "respect": 2.1, "superb": 3.1,
	"thank": 1.5, "thanks": 1.9, "underrated": 1.2, "useful": 1.9,
	"wonderful": 2.7, "wow": 2.8, "yes": 1.7, "fire": 1.5, "goat": 2.0,
	"insightful": 2.1, "talented": 2.3, "genius": 2.6, "win": 2.8,
	"support": 1.7, "smart": 1.7, "well": 1.1, "agree": 1.5,
	// negative
	"annoying": -1.7, "awful": -2.0, "bad": -2.5, "boring": -1.3,
	"broken": -1.8, "clickbait": -1.9, "confusing": -1.3,
	"cringe": -1.9, "crap": -1.6, "disappointed": -1.9,
	"disappointing": -2.2, "disgusting": -2.4, "dislike": -1.6,
	"dumb": -2.3, "fake": -2.1, "fail": -2.5, "garbage": -2.0,
	"hate": -2.7, "hated": -3.2, "horrible": -2.5, "lame": -1.8,
	"lie": -1.6, "lies": -1.8, "mess": -1.5, "misleading": -1.9,
	"pathetic": -2.6, "poor": -2.1, "ridiculous": -2.0, "sad": -2.1,
	"scam": -2.4, "stupid": -2.4, "terrible": -2.1, "trash": -2.2,
	"ugly": -2.3, "useless": -1.8, "waste": -1.8, "worse": -2.1,
	"worst": -3.1, "wrong": -2.1, "angry": -2.3, "problem": -1.7,
	"sucks": -1.5, "overrated": -1.5, "unfair": -2.1, "rude": -2.0,
}
