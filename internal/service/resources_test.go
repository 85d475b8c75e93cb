package service

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type closerFunc func() error

func (f closerFunc) Close() error { return f() }

func TestResources_CloseAllReverseOrder(t *testing.T) {
	r := NewResources()
	var order []string
	for _, name := range []string{"a", "b", "c"} {
		name := name
		r.Add(name, func(context.Context) error {
			order = append(order, name)
			return nil
		})
	}

	r.CloseAll(context.Background(), discardLogger())

	assert.Equal(t, []string{"c", "b", "a"}, order)
}

func TestResources_CloseAllIdempotent(t *testing.T) {
	r := NewResources()
	closes := 0
	r.Add("kafka publisher", func(context.Context) error {
		closes++
		return nil
	})

	r.CloseAll(context.Background(), discardLogger())
	r.CloseAll(context.Background(), discardLogger())

	assert.Equal(t, 1, closes)
}

func TestResources_CloseAllContinuesPastErrors(t *testing.T) {
	r := NewResources()
	closed := false
	r.Add("history store", func(context.Context) error {
		closed = true
		return nil
	})
	r.Add("http server", func(context.Context) error {
		return errors.New("listener already gone")
	})

	r.CloseAll(context.Background(), discardLogger())

	assert.True(t, closed, "an earlier failure must not skip remaining resources")
}

func TestResources_AddCloser(t *testing.T) {
	r := NewResources()
	closes := 0
	r.AddCloser("history store", closerFunc(func() error {
		closes++
		return nil
	}))

	r.CloseAll(context.Background(), discardLogger())

	assert.Equal(t, 1, closes)
}

func TestResources_Names(t *testing.T) {
	r := NewResources()
	r.Add("health monitor", func(context.Context) error { return nil })
	r.Add("poller", func(context.Context) error { return nil })

	assert.Equal(t, []string{"health monitor", "poller"}, r.Names())
	assert.Equal(t, 2, r.Len())
}
