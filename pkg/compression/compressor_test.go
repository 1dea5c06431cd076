package compression

import (
	"bytes"
	"io"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Dawood-ML/uv-project-management/pkg/errors"
)

var allAlgorithms = []Algorithm{None, Gzip, Snappy, LZ4, Zstd, S2}

func payload() []byte {
	return []byte(strings.Repeat(`{"feature":"MonthlyCharges","mean":70.1,"std_dev":28.9},`, 200))
}

func compress(t *testing.T, c Compressor, data []byte) []byte {
	t.Helper()
	var buf bytes.Buffer
	w, err := c.NewWriter(&buf)
	require.NoError(t, err)
	_, err = w.Write(data)
	require.NoError(t, err)
	require.NoError(t, w.Close())
	return buf.Bytes()
}

func decompress(c Compressor, data []byte) ([]byte, error) {
	r, err := c.NewReader(bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	defer r.Close()
	return io.ReadAll(r)
}

func TestRoundTrip(t *testing.T) {
	original := payload()
	for _, alg := range allAlgorithms {
		for _, level := range []Level{Fastest, Default, Best} {
			t.Run(string(alg), func(t *testing.T) {
				c, err := NewCompressor(&Config{Algorithm: alg, Level: level})
				require.NoError(t, err)
				assert.Equal(t, alg, c.Algorithm())
				assert.Equal(t, level, c.Level())

				compressed := compress(t, c, original)
				if alg != None {
					assert.Less(t, len(compressed), len(original))
				}

				out, err := decompress(c, compressed)
				require.NoError(t, err)
				assert.Equal(t, original, out)
			})
		}
	}
}

func TestReaderSizeLimit(t *testing.T) {
	for _, alg := range allAlgorithms {
		t.Run(string(alg), func(t *testing.T) {
			big, err := NewCompressor(&Config{Algorithm: alg})
			require.NoError(t, err)
			compressed := compress(t, big, payload())

			small, err := NewCompressor(&Config{Algorithm: alg, MaxDecompressedSize: 64})
			require.NoError(t, err)
			out, err := decompress(small, compressed)
			require.Error(t, err)
			assert.True(t, errors.IsType(err, errors.ErrorTypeData))
			assert.Len(t, out, 64)

			exact, err := NewCompressor(&Config{Algorithm: alg, MaxDecompressedSize: int64(len(payload()))})
			require.NoError(t, err)
			out, err = decompress(exact, compressed)
			require.NoError(t, err)
			assert.Equal(t, payload(), out)
		})
	}
}

func TestCorruptInput(t *testing.T) {
	for _, alg := range []Algorithm{Gzip, Zstd, S2, Snappy} {
		c, err := NewCompressor(&Config{Algorithm: alg})
		require.NoError(t, err)
		_, err = decompress(c, []byte("definitely not compressed"))
		assert.Error(t, err, string(alg))
	}
}

func TestUnsupportedAlgorithm(t *testing.T) {
	_, err := NewCompressor(&Config{Algorithm: "brotli"})
	require.Error(t, err)
	assert.True(t, errors.IsType(err, errors.ErrorTypeConfig))

	_, err = ParseAlgorithm("brotli")
	assert.True(t, errors.IsType(err, errors.ErrorTypeConfig))

	a, err := ParseAlgorithm(" ZSTD ")
	require.NoError(t, err)
	assert.Equal(t, Zstd, a)
}

func TestDefaultConfig(t *testing.T) {
	c, err := NewCompressor(nil)
	require.NoError(t, err)
	assert.Equal(t, Zstd, c.Algorithm())
}

func TestFromPath(t *testing.T) {
	tests := map[string]Algorithm{
		"models/churn.json.zst": Zstd,
		"models/churn.json.GZ":  Gzip,
		"churn.json.lz4":        LZ4,
		"churn.json.sz":         Snappy,
		"churn.json.s2":         S2,
		"churn.json":            None,
		"churn":                 None,
	}
	for path, want := range tests {
		assert.Equal(t, want, FromPath(path), path)
	}
	assert.Equal(t, "models/churn.json", TrimExtension("models/churn.json.zst"))
	assert.Equal(t, "churn.json", TrimExtension("churn.json"))
	for _, alg := range allAlgorithms {
		if alg == None {
			continue
		}
		assert.Equal(t, alg, FromPath("x"+alg.Extension()))
	}
}

func TestConcurrentUse(t *testing.T) {
	c, err := NewCompressor(&Config{Algorithm: Zstd})
	require.NoError(t, err)
	original := payload()
	encoded := compress(t, c, original)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			dec, err := decompress(c, encoded)
			assert.NoError(t, err)
			assert.Equal(t, original, dec)
		}()
	}
	wg.Wait()
}
