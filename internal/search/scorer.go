package search

import (
	"strings"
	"time"

	"github.com/Aman-CERP/amanfind/internal/interaction"
)

// Weights configures every additive term of the relevance score.
type Weights struct {
	// Base score per match type.
	Exact    float64
	Prefix   float64
	Fuzzy    float64
	Semantic float64
	Filter   float64
	Unknown  float64

	// Filename bonus, first matching rule only.
	NameExact    float64
	NamePrefix   float64
	NameContains float64

	// Per-interaction bonus.
	View     float64
	Download float64
	Select   float64

	// Recency bonus is (RecencyDays - days since last access) * RecencyPerDay.
	RecencyDays   int
	RecencyPerDay float64

	// PriorQuery is added when the same query previously led to an interaction.
	PriorQuery float64
}

// DefaultWeights returns the standard ranking weights.
func DefaultWeights() Weights {
	return Weights{
		Exact:    100,
		Prefix:   80,
		Fuzzy:    60,
		Semantic: 40,
		Filter:   30,
		Unknown:  30,

		NameExact:    50,
		NamePrefix:   30,
		NameContains: 20,

		View:     2,
		Download: 5,
		Select:   10,

		RecencyDays:   7,
		RecencyPerDay: 3,

		PriorQuery: 15,
	}
}

// base returns the match-type score.
func (w Weights) base(mt MatchType) float64 {
	switch mt {
	case MatchExact:
		return w.Exact
	case MatchPrefix:
		return w.Prefix
	case MatchFuzzy:
		return w.Fuzzy
	case MatchSemantic:
		return w.Semantic
	case MatchFilter:
		return w.Filter
	default:
		return w.Unknown
	}
}

// ScoreBreakdown itemises one score.
type ScoreBreakdown struct {
	Base        float64 `json:"base"`
	Name        float64 `json:"name"`
	Interaction float64 `json:"interaction"`
	Recency     float64 `json:"recency"`
	PriorQuery  float64 `json:"prior_query"`
	Total       float64 `json:"total"`
}

// Scorer ranks candidates. Its output depends only on its inputs and the
// current state of the interaction store.
type Scorer struct {
	weights      Weights
	interactions *interaction.Store
	now          func() time.Time
}

// NewScorer creates a scorer reading usage signals from interactions.
// A nil clock means time.Now.
func NewScorer(interactions *interaction.Store, weights Weights, now func() time.Time) *Scorer {
	if now == nil {
		now = time.Now
	}
	return &Scorer{weights: weights, interactions: interactions, now: now}
}

// Weights returns the scorer's weights.
func (s *Scorer) Weights() Weights { return s.weights }

// Score returns the relevance of record id named name for the joined search
// terms and the way it matched.
func (s *Scorer) Score(id int64, name, terms string, mt MatchType) float64 {
	return s.Breakdown(id, name, terms, mt).Total
}

// Breakdown is Score with each component reported separately.
func (s *Scorer) Breakdown(id int64, name, terms string, mt MatchType) ScoreBreakdown {
	w := s.weights
	b := ScoreBreakdown{Base: w.base(mt)}

	lname := strings.ToLower(name)
	lterms := strings.ToLower(terms)
	switch {
	case lterms == lname:
		b.Name = w.NameExact
	case strings.HasPrefix(lname, lterms):
		b.Name = w.NamePrefix
	case strings.Contains(lname, lterms):
		b.Name = w.NameContains
	}

	if s.interactions != nil {
		if e, ok := s.interactions.Lookup(id); ok {
			b.Interaction = float64(e.Views())*w.View +
				float64(e.Downloads())*w.Download +
				float64(e.Selections())*w.Select

			if last, ok := e.LastAccessed(); ok {
				days := int(s.now().Sub(last) / (24 * time.Hour))
				if days < 0 {
					days = 0
				}
				if days < w.RecencyDays {
					b.Recency = float64(w.RecencyDays-days) * w.RecencyPerDay
				}
			}

			if e.HasQuery(lterms) {
				b.PriorQuery = w.PriorQuery
			}
		}
	}

	b.Total = b.Base + b.Name + b.Interaction + b.Recency + b.PriorQuery
	return b
}
