package search

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

// =============================================================================
// SemanticExpander Tests
// =============================================================================

func TestSemanticExpander_Expand(t *testing.T) {
	x := NewSemanticExpander()

	tests := []struct {
		term string
		want []string
	}{
		{"photo", []string{"photo", "image"}},
		{"Movies", []string{"movies", "video"}},
		{"video", []string{"video"}}, // synonym equal to the term is dropped
		{"zip", []string{"zip", "compressed"}},
		{"vacation", []string{"vacation"}},
		{"", []string{""}},
	}

	for _, tt := range tests {
		t.Run(tt.term, func(t *testing.T) {
			assert.Equal(t, tt.want, x.Expand(tt.term))
		})
	}
}

func TestSemanticExpander_Category(t *testing.T) {
	x := NewSemanticExpander()

	cat, ok := x.Category("Screenshots")
	assert.True(t, ok)
	assert.Equal(t, "image", cat)

	cat, ok = x.Category("podcast")
	assert.True(t, ok)
	assert.Equal(t, "audio", cat)

	_, ok = x.Category("vacation")
	assert.False(t, ok)
	assert.False(t, x.IsKey("vacation"))
	assert.True(t, x.IsKey("PDF"))
}

func TestSemanticExpander_CustomSynonyms(t *testing.T) {
	x := NewSemanticExpander(WithCustomSynonyms(map[string][]string{
		"Selfie": {"image"},
		"photo":  {"Camera", "image", " "},
	}))

	assert.Equal(t, []string{"selfie", "image"}, x.Expand("selfie"))
	assert.Equal(t, []string{"photo", "image", "camera"}, x.Expand("photo"))

	cat, ok := x.Category("photo")
	assert.True(t, ok)
	assert.Equal(t, "image", cat, "built-in category stays first")
}

func TestSemanticExpander_DoesNotMutateDefaults(t *testing.T) {
	_ = NewSemanticExpander(WithCustomSynonyms(map[string][]string{"photo": {"camera"}}))
	assert.Equal(t, []string{"image"}, CategorySynonyms["photo"])
}
