package models

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestAbstractAcceptsString(t *testing.T) {
	var doc PaperDocument
	require.NoError(t, json.Unmarshal([]byte(`{"title":"T","abstract":"plain abstract","url":"u"}`), &doc))
	require.Equal(t, "plain abstract", doc.Abstract.Text)
	require.Empty(t, doc.Abstract.Images)
}

func TestAbstractAcceptsObject(t *testing.T) {
	var doc PaperDocument
	raw := `{"title":"T","abstract":{"text":"obj","images":[{"type":"figure","html":"<img/>"}]},"url":"u"}`
	require.NoError(t, json.Unmarshal([]byte(raw), &doc))
	require.Equal(t, "obj", doc.Abstract.Text)
	require.Len(t, doc.Abstract.Images, 1)
}

func TestAbstractNull(t *testing.T) {
	var doc PaperDocument
	require.NoError(t, json.Unmarshal([]byte(`{"title":"T","abstract":null}`), &doc))
	require.Equal(t, Abstract{}, doc.Abstract)
}
