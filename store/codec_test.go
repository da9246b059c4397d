package store

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCodecByName(t *testing.T) {
	for _, name := range []string{"", CodecJSON, CodecCBOR} {
		c, err := CodecByName(name)
		require.NoError(t, err)
		if name == "" {
			assert.Equal(t, CodecJSON, c.Name())
		} else {
			assert.Equal(t, name, c.Name())
		}
	}

	_, err := CodecByName("gob")
	require.Error(t, err)
}

func TestCodecsAreDeterministic(t *testing.T) {
	rec := note{ID: "n1", Body: "body", Tags: []string{"b", "a"}}

	for name, c := range codecs(t) {
		t.Run(name, func(t *testing.T) {
			a, err := c.Marshal(rec)
			require.NoError(t, err)
			b, err := c.Marshal(rec.Clone())
			require.NoError(t, err)
			assert.Equal(t, a, b)

			var out note
			require.NoError(t, c.Unmarshal(a, &out))
			assert.Equal(t, rec, out)
		})
	}
}
