package sentiment

import (
	"math"
	"strings"
	"unicode"
)

// Label is the sentiment class of a comment.
type Label string

const (
	Positive Label = "positive"
	Neutral  Label = "neutral"
	Negative Label = "negative"
)

// Labels in display order.
var Labels = []Label{Positive, Neutral, Negative}

const (
	// labelThreshold separates neutral from polar compounds.
	labelThreshold = 0.05
	// normAlpha approximates the max expected sum of valences.
	normAlpha = 15.0
	// negationScalar is applied to words following a negation.
	negationScalar = -0.74
	// capsIncrement is added to ALL-CAPS words in mixed-case text.
	capsIncrement = 0.733
	// exclaimIncrement is added per exclamation mark, up to maxExclaims.
	exclaimIncrement = 0.292
	maxExclaims      = 4
	// lookback is how many preceding tokens can modify a word.
	lookback = 3
)

// Score is the sentiment of one text.
type Score struct {
	Compound float64
	Label    Label
	// Positive and Negative list the lexicon words that contributed,
	// after negation.
	Positive []string
	Negative []string
}

// LabelFor classifies a compound score.
func LabelFor(compound float64) Label {
	switch {
	case compound >= labelThreshold:
		return Positive
	case compound <= -labelThreshold:
		return Negative
	default:
		return Neutral
	}
}

type token struct {
	lower string
	caps  bool
}

func tokenize(text string) []token {
	fields := strings.FieldsFunc(text, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r) && r != '\''
	})
	tokens := make([]token, 0, len(fields))
	for _, f := range fields {
		f = strings.Trim(f, "'")
		if f == "" {
			continue
		}
		tokens = append(tokens, token{
			lower: strings.ToLower(f),
			caps:  len([]rune(f)) > 1 && strings.ToUpper(f) == f && strings.ToLower(f) != f,
		})
	}
	return tokens
}

// Score computes the compound sentiment of text.
func (l *Lexicon) Score(text string) Score {
	tokens := tokenize(text)
	mixedCase := false
	for _, t := range tokens {
		if !t.caps {
			mixedCase = true
			break
		}
	}

	var s Score
	sum := 0.0
	for i, t := range tokens {
		v, ok := l.Valence[t.lower]
		if !ok {
			continue
		}
		if t.caps && mixedCase {
			v += math.Copysign(capsIncrement, v)
		}
		negated := false
		for j := i - 1; j >= 0 && j >= i-lookback; j-- {
			prev := tokens[j].lower
			if b, ok := l.Boosters[prev]; ok {
				// Boosters fade with distance and push away from zero.
				b *= 1.0 - 0.05*float64(i-j-1)
				if v < 0 {
					b = -b
				}
				v += b
			}
			if l.Negations[prev] {
				negated = !negated
			}
		}
		if negated {
			v *= negationScalar
		}
		sum += v
		if v > 0 {
			s.Positive = append(s.Positive, t.lower)
		} else if v < 0 {
			s.Negative = append(s.Negative, t.lower)
		}
	}

	if sum != 0 {
		n := strings.Count(text, "!")
		if n > maxExclaims {
			n = maxExclaims
		}
		sum += math.Copysign(float64(n)*exclaimIncrement, sum)
	}

	s.Compound = normalize(sum)
	s.Label = LabelFor(s.Compound)
	return s
}

func normalize(sum float64) float64 {
	c := sum / math.Sqrt(sum*sum+normAlpha)
	return math.Max(-1, math.Min(1, c))
}
