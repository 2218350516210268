package ids

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNodeUniqueUnderConcurrency(t *testing.T) {
	n := NewNode(7)
	const workers, each = 8, 2000

	var mu sync.Mutex
	seen := make(map[int64]struct{}, workers*each)
	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			local := make([]int64, 0, each)
			for i := 0; i < each; i++ {
				local = append(local, n.Next())
			}
			mu.Lock()
			for _, id := range local {
				seen[id] = struct{}{}
			}
			mu.Unlock()
		}()
	}
	wg.Wait()
	assert.Len(t, seen, workers*each)
}

func TestNodeLayout(t *testing.T) {
	n := NewNode(5)
	n.now = func() int64 { return defaultEpoch + 10 }

	first := n.Next()
	second := n.Next()
	require.Equal(t, int64(10), first>>22)
	assert.Equal(t, int64(5), (first>>12)&0x3FF)
	assert.Equal(t, int64(0), first&0xFFF)
	assert.Equal(t, int64(1), second&0xFFF)
}

func TestNewNodeClampsID(t *testing.T) {
	assert.Equal(t, int64(1), NewNode(4096).nodeID)
	assert.NotEmpty(t, GenerateString())
}
