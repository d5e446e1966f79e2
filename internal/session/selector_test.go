package session_test

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lukman83/keepwarm/internal/chance"
	"github.com/lukman83/keepwarm/internal/session"
)

func headersWithUA(ua string) http.Header {
	h := http.Header{}
	h.Set("User-Agent", ua)
	return h
}

func TestSelectorCreatesOnEmptyStore(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	clk := newClock()
	store, b := newDirStore(t, clk)
	sel := session.NewSelector(store, &chance.Fixed{Floats: []float64{0}}, session.WithIDGenerator(sequenceIDs("11111111")))

	sess := sel.Select(ctx, targetA, headersWithUA("UA-1"))

	assert.Equal(t, "11111111", sess.ID)
	assert.Equal(t, "UA-1", sess.UserAgent)
	assert.Equal(t, 1, sess.VisitCount)
	assert.Equal(t, []string{"11111111"}, store.Indexed(targetA))

	// Persisted immediately.
	data, err := b.Read(ctx, "11111111")
	require.NoError(t, err)
	rec, err := session.DecodeRecord(data)
	require.NoError(t, err)
	assert.Equal(t, session.RecordVersion, rec.Version)
	assert.Equal(t, targetA, rec.URL)
	assert.Equal(t, "UA-1", rec.UserAgent)
}

func TestSelectorReuse(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	clk := newClock()
	store, _ := newDirStore(t, clk)
	create(t, store, targetA, "aaaa0001")

	sel := session.NewSelector(store, &chance.Fixed{Floats: []float64{0.1}})
	for i := 2; i <= 4; i++ {
		clk.Advance(time.Hour)
		h := headersWithUA("fresh-ua")
		sess := sel.Select(ctx, targetA, h)

		assert.Equal(t, "aaaa0001", sess.ID)
		assert.Equal(t, i, sess.VisitCount)
		assert.True(t, sess.LastUsed.Equal(clk.Now()))
		assert.Equal(t, "ua-aaaa0001", h.Get("User-Agent"), "reused identity keeps its user agent")
	}
	assert.Equal(t, 1, store.Len())
}

func TestSelectorCreatesWhenRollMisses(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	store, _ := newDirStore(t, newClock())
	sel := session.NewSelector(store, &chance.Fixed{Floats: []float64{0.7}},
		session.WithIDGenerator(sequenceIDs("aaaa0001", "aaaa0002", "aaaa0003")))

	ids := map[string]bool{}
	for range 3 {
		ids[sel.Select(ctx, targetA, headersWithUA("UA")).ID] = true
	}
	assert.Len(t, ids, 3)
	assert.Len(t, store.Indexed(targetA), 3)
}

func TestSelectorRetriesIDCollision(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	store, _ := newDirStore(t, newClock())
	create(t, store, targetA, "dupe0001")

	sel := session.NewSelector(store, &chance.Fixed{Floats: []float64{0.99}},
		session.WithIDGenerator(sequenceIDs("dupe0001", "uniq0001")))
	sess := sel.Select(ctx, targetA, headersWithUA("UA"))
	assert.Equal(t, "uniq0001", sess.ID)
	assert.Equal(t, 2, store.Len())
}

func TestSelectorExcludesStaleSessions(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	clk := newClock()
	store, _ := newDirStore(t, clk)
	create(t, store, targetA, "stale001")

	sel := session.NewSelector(store, &chance.Fixed{Floats: []float64{0}},
		session.WithIDGenerator(sequenceIDs("fresh001")))

	clk.Advance(session.DefaultTTL)
	assert.Empty(t, sel.Candidates(targetA))

	sess := sel.Select(ctx, targetA, headersWithUA("UA"))
	assert.Equal(t, "fresh001", sess.ID)

	// Stale sessions are retained, not evicted.
	_, ok := store.Get("stale001")
	assert.True(t, ok)
	assert.Equal(t, 2, store.Len())
}

func TestSelectorWidensToOtherTargets(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	store, _ := newDirStore(t, newClock())
	create(t, store, targetA, "bbbb0001")
	create(t, store, targetA, "aaaa0001")

	sel := session.NewSelector(store, &chance.Fixed{Floats: []float64{0}, Ints: []int{0}})
	assert.Equal(t, []string{"aaaa0001", "bbbb0001"}, sel.Candidates(targetB))

	sess := sel.Select(ctx, targetB, headersWithUA("UA"))
	assert.Equal(t, "aaaa0001", sess.ID)
	assert.Equal(t, targetB, sess.TargetURL)
	assert.Equal(t, []string{"aaaa0001"}, store.Indexed(targetB))
	assert.Equal(t, []string{"bbbb0001", "aaaa0001"}, store.Indexed(targetA))
}

func TestSelectorLegacySessionAdoptsUserAgent(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	clk := newClock()
	store, b := newDirStore(t, clk)
	require.NoError(t, b.Write(ctx, "legacy01", []byte(`{"url":"https://a.example.com/","cookies":[]}`)))
	_, err := store.Load(ctx)
	require.NoError(t, err)

	sel := session.NewSelector(store, &chance.Fixed{Floats: []float64{0}})
	h := headersWithUA("synth-ua")
	sess := sel.Select(ctx, targetA, h)

	assert.Equal(t, "legacy01", sess.ID)
	assert.Equal(t, "synth-ua", sess.UserAgent)
	assert.Equal(t, "synth-ua", h.Get("User-Agent"))
	assert.Equal(t, 1, sess.VisitCount)
}

func TestSelectorReuseProbabilityOption(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	store, _ := newDirStore(t, newClock())
	create(t, store, targetA, "aaaa0001")

	never := session.NewSelector(store, &chance.Fixed{Floats: []float64{0}},
		session.WithReuseProbability(0), session.WithIDGenerator(sequenceIDs("new00001")))
	assert.Equal(t, "new00001", never.Select(ctx, targetA, http.Header{}).ID)
}

func TestSelectorReleasesLockAfterPanic(t *testing.T) {
	t.Parallel()
	store, _ := newDirStore(t, newClock())
	sel := session.NewSelector(store, &chance.Fixed{Floats: []float64{0.99}},
		session.WithIDGenerator(func() string { panic("id source failed") }))

	assert.PanicsWithValue(t, "id source failed", func() {
		sel.Select(context.Background(), targetA, headersWithUA("ua"))
	})

	done := make(chan int, 1)
	go func() { done <- store.Len() }()
	select {
	case n := <-done:
		assert.Zero(t, n)
	case <-time.After(2 * time.Second):
		t.Fatal("store lock still held after a panic in Select")
	}
}
