package deferred

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSpoolRegister(t *testing.T) {
	t.Run("coalesces repeated registrations", func(t *testing.T) {
		s := NewSpool(filepath.Join(t.TempDir(), "deferred"), true)
		require.True(t, s.Supported())

		require.NoError(t, s.Register(context.Background(), TagReminderSync))
		require.NoError(t, s.Register(context.Background(), TagReminderSync))
		require.NoError(t, s.Register(context.Background(), TagFullSync))

		pending, err := s.Pending()
		require.NoError(t, err)
		require.Len(t, pending, 2)
		assert.Equal(t, TagFullSync, pending[0].Tag)
		assert.Equal(t, 1, pending[0].Count)
		assert.Equal(t, TagReminderSync, pending[1].Tag)
		assert.Equal(t, 2, pending[1].Count)
	})

	t.Run("disabled spool reports ErrCapabilityDisabled", func(t *testing.T) {
		s := NewSpool(t.TempDir(), false)

		require.ErrorIs(t, s.Register(context.Background(), TagFullSync), ErrCapabilityDisabled)
	})

	t.Run("rejects unknown tags", func(t *testing.T) {
		s := NewSpool(t.TempDir(), true)

		require.Error(t, s.Register(context.Background(), "../escape"))
	})

	t.Run("empty dir is unsupported", func(t *testing.T) {
		assert.False(t, NewSpool("", true).Supported())
	})

	t.Run("missing dir has nothing pending", func(t *testing.T) {
		pending, err := NewSpool(filepath.Join(t.TempDir(), "nope"), true).Pending()
		require.NoError(t, err)
		assert.Empty(t, pending)
	})
}

func TestSpoolDrain(t *testing.T) {
	s := NewSpool(t.TempDir(), true)
	for _, tag := range []string{TagReminderSync, TagFullSync, TagAllDataSync} {
		require.NoError(t, s.Register(context.Background(), tag))
	}

	var seen []string
	drained, err := s.Drain(context.Background(), func(_ context.Context, in Intent) error {
		seen = append(seen, in.Tag)
		if in.Tag == TagFullSync {
			return errors.New("remote unavailable")
		}
		return nil
	})

	require.Error(t, err)
	assert.Contains(t, err.Error(), "full-sync")
	assert.Equal(t, 2, drained)
	assert.Equal(t, []string{TagAllDataSync, TagFullSync, TagReminderSync}, seen)

	pending, err := s.Pending()
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, TagFullSync, pending[0].Tag)
}

func TestRegistrarWithSpool(t *testing.T) {
	s := NewSpool(t.TempDir(), true)
	r := New(s, nil)

	assert.True(t, r.RegisterReminderSync(context.Background()))

	pending, err := s.Pending()
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, TagReminderSync, pending[0].Tag)
}
