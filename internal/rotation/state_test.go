package rotation

import (
	"fmt"
	"sort"
	"testing"

	"github.com/genricoloni/reverie/internal/domain"
	"github.com/genricoloni/reverie/internal/random"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func makeImages(prefix string, n int) []domain.ImageRecord {
	images := make([]domain.ImageRecord, n)
	for i := range images {
		images[i] = domain.ImageRecord{
			URL:      fmt.Sprintf("https://img.example/%s/%d.jpg", prefix, i),
			Filename: fmt.Sprintf("%s_%d.jpg", prefix, i),
		}
	}
	return images
}

func TestState_TickNoopForSmallLists(t *testing.T) {
	for _, mode := range []domain.OrderMode{domain.OrderSequential, domain.OrderRandom} {
		for _, n := range []int{0, 1} {
			s := NewState(random.NewSeeded(1), mode)
			s.Replace(makeImages("a", n))
			for i := 0; i < 5; i++ {
				assert.False(t, s.Tick(), "mode=%s n=%d", mode, n)
				assert.False(t, s.Prev(), "mode=%s n=%d", mode, n)
				assert.Equal(t, 0, s.Index())
			}
		}
	}
}

func TestState_SequentialIsCyclic(t *testing.T) {
	for n := 2; n <= 7; n++ {
		s := NewState(random.NewSeeded(1), domain.OrderSequential)
		s.Replace(makeImages("a", n))

		for i := 1; i <= n; i++ {
			require.True(t, s.Tick())
			assert.Equal(t, i%n, s.Index())
		}
		assert.Equal(t, 0, s.Index(), "n ticks must return to the start")
	}
}

func TestState_SequentialPrevWraps(t *testing.T) {
	s := NewState(random.NewSeeded(1), domain.OrderSequential)
	s.Replace(makeImages("a", 3))

	require.True(t, s.Prev())
	assert.Equal(t, 2, s.Index())
	require.True(t, s.Prev())
	assert.Equal(t, 1, s.Index())
}

func TestState_RandomPassVisitsEveryIndexOnce(t *testing.T) {
	for n := 2; n <= 12; n++ {
		s := NewState(random.NewSeeded(uint64(n)), domain.OrderRandom)
		s.Replace(makeImages("a", n))

		for pass := 0; pass < 4; pass++ {
			before := s.ShuffleOrder()
			visited := make([]int, 0, n)
			for i := 0; i < n; i++ {
				require.True(t, s.Tick())
				visited = append(visited, s.Index())
			}

			// the pass walks the permutation that was active when it started
			expected := append(append([]int{}, before[1:]...), before[0])
			assert.Equal(t, expected, visited)

			sorted := append([]int{}, visited...)
			sort.Ints(sorted)
			for i, v := range sorted {
				require.Equal(t, i, v, "n=%d pass=%d visited=%v", n, pass, visited)
			}
			assert.Equal(t, 0, s.Cursor())
		}
	}
}

func TestState_ShuffleIsAlwaysAPermutation(t *testing.T) {
	s := NewState(random.NewSeeded(99), domain.OrderRandom)
	s.Replace(makeImages("a", 9))

	for i := 0; i < 100; i++ {
		order := s.ShuffleOrder()
		require.Len(t, order, 9)
		sorted := append([]int{}, order...)
		sort.Ints(sorted)
		for j, v := range sorted {
			require.Equal(t, j, v)
		}
		s.Tick()
	}
}

// scriptedRand replays a fixed sequence of draws
type scriptedRand struct {
	vals []int
	i    int
}

func (r *scriptedRand) IntN(int) int {
	v := r.vals[r.i%len(r.vals)]
	r.i++
	return v
}

func TestState_SeamRepeatIsPreserved(t *testing.T) {
	// draws (0,0) build [1 2 0]; draws (2,1) build [0 1 2]
	s := NewState(&scriptedRand{vals: []int{0, 0, 2, 1}}, domain.OrderRandom)
	s.Replace(makeImages("a", 3))
	require.Equal(t, []int{1, 2, 0}, s.ShuffleOrder())

	var seq []int
	for i := 0; i < 6; i++ {
		require.True(t, s.Tick())
		seq = append(seq, s.Index())
	}
	// pass one ends on old[0]=1, pass two opens on new[1]=1
	assert.Equal(t, []int{2, 0, 1, 1, 2, 0}, seq)
}

func TestState_ReplaceResets(t *testing.T) {
	s := NewState(random.NewSeeded(3), domain.OrderRandom)
	s.Replace(makeImages("a", 5))
	s.Tick()
	s.Tick()

	s.Replace(makeImages("b", 4))
	assert.Equal(t, 0, s.Index())
	assert.Equal(t, 0, s.Cursor())
	assert.Len(t, s.ShuffleOrder(), 4)
	cur, ok := s.Current()
	require.True(t, ok)
	assert.Equal(t, "b_0.jpg", cur.Filename)
}

func TestState_SetOrderModeKeepsImages(t *testing.T) {
	images := makeImages("a", 6)
	s := NewState(random.NewSeeded(5), domain.OrderSequential)
	s.Replace(images)
	s.Tick()
	s.Tick()
	require.Nil(t, s.ShuffleOrder())

	s.SetOrderMode(domain.OrderRandom)
	assert.Len(t, s.ShuffleOrder(), 6)
	assert.Equal(t, 0, s.Cursor())
	assert.Equal(t, 2, s.Index(), "switching mode keeps the current image")
	assert.Equal(t, images, s.Images())
	assert.Same(t, &images[0], &s.Images()[0])

	s.SetOrderMode(domain.OrderSequential)
	assert.Nil(t, s.ShuffleOrder())
	assert.Equal(t, images, s.Images())
}

func TestState_RandomPrevWalksBackwards(t *testing.T) {
	s := NewState(random.NewSeeded(8), domain.OrderRandom)
	s.Replace(makeImages("a", 5))
	order := s.ShuffleOrder()

	s.Tick()
	s.Tick()
	require.Equal(t, order[2], s.Index())

	s.Prev()
	assert.Equal(t, order[1], s.Index())
	assert.Equal(t, order, s.ShuffleOrder(), "prev must not reshuffle")
}

func TestState_CurrentOnEmpty(t *testing.T) {
	s := NewState(random.NewSeeded(1), domain.OrderSequential)
	_, ok := s.Current()
	assert.False(t, ok)
}
