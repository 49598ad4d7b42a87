package cmd

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/Aman-CERP/amanfind/internal/config"
	"github.com/Aman-CERP/amanfind/internal/search"
)

func TestWeightsFromConfig(t *testing.T) {
	def := search.DefaultWeights()

	tests := []struct {
		name    string
		scoring config.ScoringConfig
		want    func() search.Weights
	}{
		{
			name: "zero values keep defaults",
			want: func() search.Weights { return def },
		},
		{
			name:    "overrides",
			scoring: config.ScoringConfig{Exact: 200, Download: 9, RecencyDays: 14, RecencyPoint: 1.5},
			want: func() search.Weights {
				w := def
				w.Exact = 200
				w.Download = 9
				w.RecencyDays = 14
				w.RecencyPerDay = 1.5
				return w
			},
		},
		{
			name:    "negative recency days ignored",
			scoring: config.ScoringConfig{RecencyDays: -1, PriorQuery: 40},
			want: func() search.Weights {
				w := def
				w.PriorQuery = 40
				return w
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want(), weightsFromConfig(tt.scoring))
		})
	}
}

func TestEngineOptions(t *testing.T) {
	cfg := config.NewConfig()
	assert.Len(t, engineOptions(cfg), 2)

	cfg.Synonyms = map[string][]string{"invoice": {"bill", "receipt"}}
	assert.Len(t, engineOptions(cfg), 3)
}

func TestCoverage(t *testing.T) {
	assert.InDelta(t, 100.0, coverage(0, 0), 0.001)
	assert.InDelta(t, 50.0, coverage(2, 4), 0.001)
	assert.InDelta(t, 100.0, coverage(3, 3), 0.001)
}

func TestWatchTargets(t *testing.T) {
	data := filepath.Join("/", "home", "u", ".amanfind")
	work := filepath.Join("/", "work")

	t.Run("catalog and project config", func(t *testing.T) {
		got := watchTargets(filepath.Join(data, "catalog.db"), "", work)
		assert.Equal(t, map[string][]string{
			data: {"catalog.db", "catalog.db-wal"},
			work: {config.ProjectConfigName},
		}, got)
	})

	t.Run("source shares the working directory", func(t *testing.T) {
		got := watchTargets(filepath.Join(data, "catalog.db"), filepath.Join(work, "records.json"), work)
		assert.Equal(t, []string{"records.json", config.ProjectConfigName}, got[work])
		assert.Len(t, got, 2)
	})

	t.Run("catalog in the working directory", func(t *testing.T) {
		got := watchTargets(filepath.Join(work, "catalog.db"), "", work)
		assert.Equal(t, map[string][]string{
			work: {"catalog.db", "catalog.db-wal", config.ProjectConfigName},
		}, got)
	})
}
