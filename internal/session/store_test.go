package session

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"honeypot/internal/models"
)

func newTestStore() *Store {
	return NewStore(zap.NewNop())
}

func TestAcquireCreatesOnce(t *testing.T) {
	st := newTestStore()

	s, created, release := st.Acquire("s1")
	require.True(t, created)
	require.Equal(t, "s1", s.ID)
	assert.Equal(t, models.StatusActive, s.Status)
	release()

	s2, created, release := st.Acquire("s1")
	defer release()
	assert.False(t, created)
	assert.Same(t, s, s2)
}

func TestLookupUnknownSession(t *testing.T) {
	st := newTestStore()

	_, _, err := st.Lookup("missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestPerSessionSerialization(t *testing.T) {
	st := newTestStore()

	const goroutines = 32
	var wg sync.WaitGroup
	wg.Add(goroutines)

	for i := 0; i < goroutines; i++ {
		go func() {
			defer wg.Done()
			s, _, release := st.Acquire("same")
			defer release()
			s.AppendTurn(models.Turn{Sender: models.SenderScammer, Text: "hi"})
		}()
	}
	wg.Wait()

	s, _, release := st.Acquire("same")
	defer release()
	assert.Len(t, s.History, goroutines)
	assert.Equal(t, goroutines, s.TurnCount)
}

func TestRemove(t *testing.T) {
	st := newTestStore()

	_, _, release := st.Acquire("gone")
	release()
	require.Equal(t, 1, st.Len())

	st.Remove("gone")
	assert.Equal(t, 0, st.Len())
	_, _, err := st.Lookup("gone")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestIdleSince(t *testing.T) {
	st := newTestStore()

	stale, _, release := st.Acquire("stale")
	stale.LastActivity = time.Now().Add(-time.Hour)
	release()

	done, _, release := st.Acquire("done")
	done.Status = models.StatusConcluded
	done.LastActivity = time.Now().Add(-time.Hour)
	release()

	_, _, release = st.Acquire("fresh")
	release()

	active, concluded := st.IdleSince(time.Now().Add(-time.Minute))
	assert.Equal(t, []string{"stale"}, active)
	assert.Equal(t, []string{"done"}, concluded)
}
