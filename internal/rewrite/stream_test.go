package rewrite

import (
	"bytes"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const schemaURL = "https://acme-com.lunalift.ai/.schema.json"

// bufferedDeferred is the whole-document equivalent of the streaming inserts.
func bufferedDeferred(doc string) string {
	return InjectSchemaLoader(InjectPixel(doc, testPixel), schemaURL)
}

func spliceInChunks(t *testing.T, doc string, chunk int) string {
	t.Helper()
	var out bytes.Buffer
	s := NewSplicer(&out, PixelInsert(testPixel), SchemaLoaderInsert(schemaURL))
	data := []byte(doc)
	for i := 0; i < len(data); i += chunk {
		end := min(i+chunk, len(data))
		n, err := s.Write(data[i:end])
		require.NoError(t, err)
		require.Equal(t, end-i, n)
	}
	require.NoError(t, s.Close())
	return out.String()
}

func TestSplicer_MatchesBufferedForEveryChunkSize(t *testing.T) {
	docs := map[string]string{
		"plain page":      page,
		"pixel present":   `<html><head></head><body><script src="https://optimize.lunalift.ai/pixel.js"></script></body></html>`,
		"no anchors":      `<p>fragment only</p>`,
		"body before head": `<body></body><head></head>`,
		"repeated anchors": `<head></head><body></body></head></body>`,
	}

	for name, doc := range docs {
		t.Run(name, func(t *testing.T) {
			want := bufferedDeferred(doc)
			for chunk := 1; chunk <= len(doc); chunk++ {
				assert.Equal(t, want, spliceInChunks(t, doc, chunk), "chunk size %d", chunk)
			}
		})
	}
}

func TestSplicer_ForwardsEarly(t *testing.T) {
	var out bytes.Buffer
	s := NewSplicer(&out, PixelInsert(testPixel))

	_, err := s.Write([]byte("<html><head><title>streaming</title>"))
	require.NoError(t, err)
	assert.NotEmpty(t, out.String(), "bytes that cannot start an anchor are not held back")

	_, err = s.Write([]byte("</head><body>x</body></html>"))
	require.NoError(t, err)
	require.NoError(t, s.Close())
	assert.Equal(t, InjectPixel("<html><head><title>streaming</title></head><body>x</body></html>", testPixel), out.String())
}

func TestSplicer_WriteAfterClose(t *testing.T) {
	var out bytes.Buffer
	s := NewSplicer(&out)
	require.NoError(t, s.Close())

	_, err := s.Write([]byte("late"))
	assert.Error(t, err)
	assert.NoError(t, s.Close(), "second close is a no-op")
}

type failingWriter struct{}

func (failingWriter) Write([]byte) (int, error) { return 0, errors.New("client went away") }

func TestSplicer_PropagatesWriteErrors(t *testing.T) {
	s := NewSplicer(failingWriter{}, PixelInsert(testPixel))

	_, err := s.Write([]byte("<html><body>content that is long enough to flush</body>"))
	assert.Error(t, err)
	assert.Error(t, s.Close())
}

func TestSplicer_Applied(t *testing.T) {
	var out bytes.Buffer
	s := NewSplicer(&out, SchemaLoaderInsert(schemaURL), PixelInsert(testPixel))

	_, err := s.Write([]byte(`<html><head></head><body><script src="https://optimize.lunalift.ai/pixel.js"></script></body></html>`))
	require.NoError(t, err)
	require.NoError(t, s.Close())

	assert.True(t, s.Applied(0), "loader inserted before </head>")
	assert.False(t, s.Applied(1), "pixel already present")
	assert.False(t, s.Applied(5))
}
