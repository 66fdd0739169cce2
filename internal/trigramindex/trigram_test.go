package trigramindex

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestExtractShorterThanThreeBytesIsNil(t *testing.T) {
	assert.Nil(t, Extract(""))
	assert.Nil(t, Extract("a"))
	assert.Nil(t, Extract("ab"))
}

func TestExtractExactlyThreeBytesYieldsOneTrigram(t *testing.T) {
	assert.Equal(t, []Trigram{{'a', 'b', 'c'}}, Extract("abc"))
}

func TestExtractSlidesOverlappingWindows(t *testing.T) {
	got := Extract("abcd")
	want := []Trigram{{'a', 'b', 'c'}, {'b', 'c', 'd'}}
	assert.Equal(t, want, got)
}

func TestExtractLowercasesASCII(t *testing.T) {
	assert.Equal(t, Extract("ABC"), Extract("abc"))
	assert.Equal(t, Extract("AbC"), Extract("abc"))
}

func TestExtractMultibyteBytesAreCaseSensitive(t *testing.T) {
	// "café" lowercased byte-wise still differs from "CAFÉ" because the
	// multibyte 'é'/'É' bytes aren't ASCII letters and are left alone.
	lower := Extract("café")
	upper := Extract("CAFÉ")
	assert.NotEqual(t, lower, upper)
}

func TestExtractIsStableAcrossCalls(t *testing.T) {
	assert.Equal(t, Extract("main.go"), Extract("main.go"))
}
