package compression

import (
	"bytes"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseType(t *testing.T) {
	tests := []struct {
		input string
		want  Type
	}{
		{"", TypeNone},
		{"none", TypeNone},
		{"GZIP", TypeGzip},
		{"gz", TypeGzip},
		{"zstd", TypeZstd},
		{" zst ", TypeZstd},
	}
	for _, tt := range tests {
		got, err := ParseType(tt.input)
		require.NoError(t, err, tt.input)
		assert.Equal(t, tt.want, got, tt.input)
	}

	_, err := ParseType("lz4")
	assert.Error(t, err)
}

func TestExtension(t *testing.T) {
	assert.Equal(t, ".gz", TypeGzip.Extension())
	assert.Equal(t, ".zst", TypeZstd.Extension())
	assert.Empty(t, TypeNone.Extension())
}

func TestRoundTrip(t *testing.T) {
	data := []byte(strings.Repeat("java-1/2;main;run;work 42\n", 200))

	for _, typ := range []Type{TypeNone, TypeGzip, TypeZstd} {
		for _, level := range []Level{LevelFastest, LevelDefault, LevelBest} {
			compressed, err := Compress(data, typ, level)
			require.NoError(t, err, "%s/%d", typ, level)
			assert.Equal(t, typ, DetectType(compressed), "%s/%d", typ, level)
			if typ != TypeNone {
				assert.Less(t, len(compressed), len(data))
			}

			plain, err := Decompress(compressed)
			require.NoError(t, err)
			assert.Equal(t, data, plain)
		}
	}
}

func TestNewReader_Stream(t *testing.T) {
	var buf bytes.Buffer
	w, err := NewWriter(&buf, TypeZstd, LevelDefault)
	require.NoError(t, err)
	_, err = io.WriteString(w, "hello")
	require.NoError(t, err)
	require.NoError(t, w.Close())

	r, typ, err := NewReader(&buf)
	require.NoError(t, err)
	defer r.Close()
	assert.Equal(t, TypeZstd, typ)

	out, err := io.ReadAll(r)
	require.NoError(t, err)
	assert.Equal(t, "hello", string(out))
}

func TestNewReader_ShortInput(t *testing.T) {
	r, typ, err := NewReader(strings.NewReader("ab"))
	require.NoError(t, err)
	assert.Equal(t, TypeNone, typ)

	out, err := io.ReadAll(r)
	require.NoError(t, err)
	assert.Equal(t, "ab", string(out))
}

func TestNewWriter_Unknown(t *testing.T) {
	_, err := NewWriter(io.Discard, Type("brotli"), LevelDefault)
	assert.Error(t, err)
}
