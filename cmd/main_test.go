package main

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestRootCmd(t *testing.T) {
	t.Run("should register every subcommand", func(t *testing.T) {
		root := newRootCmd()

		names := make([]string, 0, len(root.Commands()))
		for _, c := range root.Commands() {
			names = append(names, c.Name())
		}
		require.ElementsMatch(t, []string{"serve", "invalidate", "stats", "reconcile"}, names)
	})

	t.Run("should reject invalidate without a namespace", func(t *testing.T) {
		root := newRootCmd()
		root.SetArgs([]string{"invalidate"})
		root.SilenceErrors = true

		require.Error(t, root.Execute())
	})

	t.Run("should reject an unknown namespace before building dependencies", func(t *testing.T) {
		root := newRootCmd()
		root.SetArgs([]string{"invalidate", "images"})
		root.SilenceErrors = true

		require.Error(t, root.Execute())
	})
}

func TestShutdownHooks(t *testing.T) {
	t.Run("should run hooks in reverse order", func(t *testing.T) {
		hooks := &shutdownHooks{}
		var order []int
		hooks.add(func() error { order = append(order, 1); return nil })
		hooks.add(func() error { order = append(order, 2); return nil })

		require.NoError(t, hooks.run())
		require.Equal(t, []int{2, 1}, order)
	})

	t.Run("should join errors and keep running", func(t *testing.T) {
		hooks := &shutdownHooks{}
		first := errors.New("first")
		second := errors.New("second")
		ran := false
		hooks.add(func() error { return first })
		hooks.add(func() error { ran = true; return nil })
		hooks.add(func() error { return second })

		err := hooks.run()
		require.ErrorIs(t, err, first)
		require.ErrorIs(t, err, second)
		require.True(t, ran)
	})

	t.Run("should only register closers", func(t *testing.T) {
		hooks := &shutdownHooks{}
		hooks.addCloser(struct{}{})
		hooks.addCloser(closerFunc(func() error { return nil }))

		require.Len(t, hooks.hooks, 1)
	})

	t.Run("should be empty after running", func(t *testing.T) {
		hooks := &shutdownHooks{}
		calls := 0
		hooks.add(func() error { calls++; return nil })

		require.NoError(t, hooks.run())
		require.NoError(t, hooks.run())
		require.Equal(t, 1, calls)
	})
}

type closerFunc func() error

func (f closerFunc) Close() error { return f() }
