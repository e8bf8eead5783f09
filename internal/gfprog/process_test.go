// Public domain.

package gfprog

import (
	"errors"
	"io"
	"runtime"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProcessOrder(t *testing.T) {
	var b strings.Builder
	p := &prog{w: &b}
	files := []string{"a", "b", "c", "d", "e"}
	require.NoError(t, p.process(files, func(fn string) (string, error) {
		return fn + "\n", nil
	}))
	assert.Equal(t, "a\nb\nc\nd\ne\n", b.String())
}

func TestProcessErrorReleasesGoroutines(t *testing.T) {
	p := &prog{w: io.Discard}
	files := make([]string, 20*runtime.GOMAXPROCS(0))
	for i := range files {
		files[i] = "missing"
	}
	fail := errors.New("no such dataset")
	before := runtime.NumGoroutine()
	for k := 0; k < 5; k++ {
		err := p.process(files, func(string) (string, error) { return "", fail })
		assert.ErrorIs(t, err, fail)
	}
	assert.Eventually(t, func() bool {
		return runtime.NumGoroutine() <= before
	}, 5*time.Second, 10*time.Millisecond)
}
