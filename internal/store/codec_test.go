package store

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncodeDecode(t *testing.T) {
	type area struct {
		ID        string  `json:"id"`
		WidgetIDs []int64 `json:"widgetIds"`
	}

	s, err := Encode(area{ID: "footer", WidgetIDs: []int64{3, 1}})
	require.NoError(t, err)
	assert.JSONEq(t, `{"id":"footer","widgetIds":[3,1]}`, s)

	var out area
	require.NoError(t, Decode(s, &out))
	assert.Equal(t, []int64{3, 1}, out.WidgetIDs)

	assert.Error(t, Decode("{", &out))
}

func TestCheckMeta(t *testing.T) {
	assert.Error(t, CheckMeta(nil))
	assert.Error(t, CheckMeta(&Meta{Type: MetaTypeTheme}))
	assert.Error(t, CheckMeta(&Meta{Key: "k", Type: "bogus"}))
	assert.NoError(t, CheckMeta(&Meta{Key: "k", Type: MetaTypeTheme}))
}
