package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	stderrors "errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/HartBrook/promptforge/internal/prompt"
)

func testRequest() prompt.Request {
	return prompt.Request{Idea: "Create a function", Context: "", Mode: prompt.ModeNLAC}
}

func testPrompt() *prompt.PromptObject {
	obj := prompt.NewPromptObject(prompt.IntentGenerate, "You are a Developer.\n\n## Task\nCreate a function")
	obj.Annotate("mode", "nlac")
	return obj
}

type fakeClock struct{ t time.Time }

func (f *fakeClock) now() time.Time { return f.t }

func (f *fakeClock) advance(d time.Duration) { f.t = f.t.Add(d) }

func newClock() *fakeClock {
	return &fakeClock{t: time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)}
}

// brokenBackend fails every call.
type brokenBackend struct{ calls int }

var errBroken = stderrors.New("disk on fire")

func (b *brokenBackend) GetCached(context.Context, string) (*Entry, bool, error) {
	b.calls++
	return nil, false, errBroken
}
func (b *brokenBackend) PutCached(context.Context, *Entry) error { b.calls++; return errBroken }
func (b *brokenBackend) DeleteCached(context.Context, string) (bool, error) {
	b.calls++
	return false, errBroken
}
func (b *brokenBackend) List(context.Context) ([]*Entry, error) { return nil, errBroken }
func (b *brokenBackend) Clear(context.Context) (int, error)     { b.calls++; return 0, errBroken }
func (b *brokenBackend) Close() error                           { return nil }

func TestKey(t *testing.T) {
	req := testRequest()

	assert.Equal(t, Key(req), Key(req))
	assert.Len(t, Key(req), 64)

	other := req
	other.Mode = prompt.ModeFast
	assert.NotEqual(t, Key(req), Key(other))

	shifted := prompt.Request{Idea: "Create a function|", Mode: prompt.ModeNLAC}
	assert.NotEqual(t, Key(req), Key(shifted))
}

func TestKey_HashesRawBytes(t *testing.T) {
	req := prompt.Request{Idea: "Create a function", Context: "Go service", Mode: prompt.ModeFast}
	sum := sha256.Sum256([]byte("Create a function|Go service|fast"))
	assert.Equal(t, hex.EncodeToString(sum[:]), Key(req))

	composed := prompt.Request{Idea: "caf\u00e9"}
	decomposed := prompt.Request{Idea: "cafe\u0301"}
	assert.NotEqual(t, Key(composed), Key(decomposed), "input bytes are not normalized")
}

func TestHashContent(t *testing.T) {
	assert.Equal(t, HashContent("test content"), HashContent("test content"))
	assert.NotEqual(t, HashContent("a"), HashContent("b"))
}

func TestCache_RoundTrip(t *testing.T) {
	c, err := New()
	require.NoError(t, err)
	ctx := context.Background()
	obj := testPrompt()

	c.Put(ctx, testRequest(), obj)
	got, ok := c.Get(ctx, testRequest())

	require.True(t, ok)
	assert.Equal(t, obj.ID, got.ID)
	assert.Equal(t, obj.Template, got.Template)

	_, ok = c.Get(ctx, prompt.Request{Idea: "something else"})
	assert.False(t, ok)
}

func TestCache_ReturnsCopies(t *testing.T) {
	c, err := New()
	require.NoError(t, err)
	ctx := context.Background()
	obj := testPrompt()

	c.Put(ctx, testRequest(), obj)
	obj.SetTemplate("mutated after put")

	got, _ := c.Get(ctx, testRequest())
	got.Metadata.Extra["mode"] = "mutated after get"

	again, _ := c.Get(ctx, testRequest())
	assert.Equal(t, "You are a Developer.\n\n## Task\nCreate a function", again.Template)
	assert.Equal(t, "nlac", again.Metadata.Extra["mode"])
}

func TestCache_HitBookkeeping(t *testing.T) {
	clock := newClock()
	c, err := New(WithClock(clock.now))
	require.NoError(t, err)
	ctx := context.Background()

	c.Put(ctx, testRequest(), testPrompt())
	created := clock.t

	clock.advance(time.Minute)
	c.Get(ctx, testRequest())
	clock.advance(time.Minute)
	c.Get(ctx, testRequest())

	entries, err := c.Entries(ctx)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, 2, entries[0].Hits)
	assert.Equal(t, created, entries[0].CreatedAt)
	assert.Equal(t, clock.t, entries[0].LastAccess)

	clock.advance(time.Minute)
	c.Put(ctx, testRequest(), testPrompt())
	entries, _ = c.Entries(ctx)
	assert.Equal(t, created, entries[0].CreatedAt, "created_at is immutable")

	stats := c.Stats()
	assert.Equal(t, Stats{Entries: 1, Hits: 2, AvgHits: 2}, stats)
}

func TestCache_InvalidateTwice(t *testing.T) {
	c, err := New()
	require.NoError(t, err)
	ctx := context.Background()

	c.Put(ctx, testRequest(), testPrompt())

	assert.True(t, c.Invalidate(ctx, testRequest()))
	assert.False(t, c.Invalidate(ctx, testRequest()))
	_, ok := c.Get(ctx, testRequest())
	assert.False(t, ok)
}

func TestCache_ClearReturnsCount(t *testing.T) {
	c, err := New()
	require.NoError(t, err)
	ctx := context.Background()

	c.Put(ctx, testRequest(), testPrompt())
	c.Put(ctx, prompt.Request{Idea: "Explain closures"}, testPrompt())

	assert.Equal(t, 2, c.Clear(ctx))
	assert.Equal(t, 0, c.Stats().Entries)
	assert.Equal(t, 0, c.Clear(ctx))
}

func TestCache_CapacityEvictsOldest(t *testing.T) {
	c, err := New(WithCapacity(1))
	require.NoError(t, err)
	ctx := context.Background()

	c.Put(ctx, prompt.Request{Idea: "first"}, testPrompt())
	c.Put(ctx, prompt.Request{Idea: "second"}, testPrompt())

	_, ok := c.Get(ctx, prompt.Request{Idea: "first"})
	assert.False(t, ok)
	_, ok = c.Get(ctx, prompt.Request{Idea: "second"})
	assert.True(t, ok)
}

func TestCache_DurableFailuresAreSwallowed(t *testing.T) {
	backend := &brokenBackend{}
	c, err := New(WithBackend(backend))
	require.NoError(t, err)
	ctx := context.Background()

	c.Put(ctx, testRequest(), testPrompt())
	got, ok := c.Get(ctx, testRequest())

	require.True(t, ok)
	assert.NotNil(t, got)
	assert.True(t, c.Invalidate(ctx, testRequest()), "memory removal still counts")
	assert.False(t, c.Invalidate(ctx, testRequest()))
	assert.Equal(t, 0, c.Clear(ctx))
	assert.Greater(t, backend.calls, 0)
}

func TestCache_BackendSharedAcrossInstances(t *testing.T) {
	backends := map[string]func(t *testing.T) Backend{
		"file": func(t *testing.T) Backend { return NewFileBackend(t.TempDir()) },
		"sqlite": func(t *testing.T) Backend {
			b, err := OpenSQLite(":memory:")
			require.NoError(t, err)
			return b
		},
	}

	for name, open := range backends {
		t.Run(name, func(t *testing.T) {
			backend := open(t)
			defer backend.Close()
			ctx := context.Background()
			obj := testPrompt()

			first, err := New(WithBackend(backend))
			require.NoError(t, err)
			first.Put(ctx, testRequest(), obj)

			second, err := New(WithBackend(backend))
			require.NoError(t, err)
			got, ok := second.Get(ctx, testRequest())
			require.True(t, ok, "memory miss must fall through to the durable tier")
			assert.Equal(t, obj.ID, got.ID)
			assert.Equal(t, obj.Template, got.Template)
			assert.Equal(t, 1, second.Stats().Entries, "durable hit is promoted to memory")

			assert.True(t, second.Invalidate(ctx, testRequest()))
			assert.False(t, second.Invalidate(ctx, testRequest()))

			_, ok = first.Get(ctx, prompt.Request{Idea: "never stored"})
			assert.False(t, ok)
		})
	}
}

func TestEntry_Age(t *testing.T) {
	now := time.Date(2026, 1, 10, 0, 0, 0, 0, time.UTC)

	tests := []struct {
		ago  time.Duration
		want string
	}{
		{30 * time.Second, "just now"},
		{time.Minute, "1 minute ago"},
		{5 * time.Minute, "5 minutes ago"},
		{time.Hour, "1 hour ago"},
		{3 * time.Hour, "3 hours ago"},
		{24 * time.Hour, "1 day ago"},
		{72 * time.Hour, "3 days ago"},
	}

	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			e := &Entry{LastAccess: now.Add(-tt.ago)}
			assert.Equal(t, tt.want, e.Age(now))
		})
	}
}
