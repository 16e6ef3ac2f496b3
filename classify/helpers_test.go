package classify

import (
	"bytes"
	"math/rand"
	"testing"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"gonum.org/v1/gonum/mat"
)

// blobs draws perBlob gaussian points around every center
func blobs(seed int64, perBlob int, sigma float64, centers ...[]float64) *mat.Dense {
	rng := rand.New(rand.NewSource(seed))
	d := len(centers[0])
	x := mat.NewDense(perBlob*len(centers), d, nil)
	for c, center := range centers {
		for p := 0; p < perBlob; p++ {
			row := x.RawRowView(c*perBlob + p)
			for j := range row {
				row[j] = center[j] + rng.NormFloat64()*sigma
			}
		}
	}
	return x
}

// captureLogs redirects the global logger into a buffer for the duration of the test
func captureLogs(t *testing.T) *bytes.Buffer {
	t.Helper()
	var buf bytes.Buffer
	orig := log.Logger
	log.Logger = zerolog.New(&buf)
	t.Cleanup(func() { log.Logger = orig })
	return &buf
}

func strPtr(s string) *string {
	return &s
}
