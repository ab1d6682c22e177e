// Package storetest holds behaviour tests shared by every license.Store backend.
package storetest

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cheetahbyte/licensor/internal/license"
)

// Run exercises s. Keys are prefixed with prefix so the suite can share a database
// with other runs.
func Run(t *testing.T, s license.Store, prefix string) {
	t.Helper()
	ctx := context.Background()
	key := func(name string) string { return fmt.Sprintf("%s-%s", prefix, name) }

	t.Run("Ping", func(t *testing.T) {
		require.NoError(t, s.Ping(ctx))
	})

	t.Run("LookupMissing", func(t *testing.T) {
		_, err := s.Lookup(ctx, key("missing"))
		assert.ErrorIs(t, err, license.ErrNotFound)
	})

	t.Run("InsertAndLookup", func(t *testing.T) {
		exp := time.Date(2030, 1, 2, 0, 0, 0, 0, time.UTC)
		created, err := s.Insert(ctx, license.NewLicense{Key: key("insert"), MaxAccounts: 3, Expiry: &exp})
		require.NoError(t, err)
		assert.Equal(t, license.StatusActive, created.Status)
		assert.Empty(t, created.BoundAccounts)

		got, err := s.Lookup(ctx, key("insert"))
		require.NoError(t, err)
		assert.Equal(t, 3, got.MaxAccounts)
		require.NotNil(t, got.Expiry)
		assert.True(t, exp.Equal(*got.Expiry))
		assert.Equal(t, license.StatusActive, got.Status)
	})

	t.Run("InsertWithoutExpiry", func(t *testing.T) {
		_, err := s.Insert(ctx, license.NewLicense{Key: key("noexp"), MaxAccounts: 1})
		require.NoError(t, err)

		got, err := s.Lookup(ctx, key("noexp"))
		require.NoError(t, err)
		assert.Nil(t, got.Expiry)
	})

	t.Run("DuplicateKey", func(t *testing.T) {
		_, err := s.Insert(ctx, license.NewLicense{Key: key("dup"), MaxAccounts: 2})
		require.NoError(t, err)
		_, err = s.AppendAccount(ctx, key("dup"), 11)
		require.NoError(t, err)

		_, err = s.Insert(ctx, license.NewLicense{Key: key("dup"), MaxAccounts: 9})
		assert.ErrorIs(t, err, license.ErrDuplicateKey)

		got, err := s.Lookup(ctx, key("dup"))
		require.NoError(t, err)
		assert.Equal(t, 2, got.MaxAccounts)
		assert.Equal(t, []int64{11}, got.BoundAccounts)
	})

	t.Run("AppendAccount", func(t *testing.T) {
		_, err := s.Insert(ctx, license.NewLicense{Key: key("append"), MaxAccounts: 2})
		require.NoError(t, err)

		l, err := s.AppendAccount(ctx, key("append"), 1)
		require.NoError(t, err)
		assert.Equal(t, []int64{1}, l.BoundAccounts)

		l, err = s.AppendAccount(ctx, key("append"), 1)
		require.NoError(t, err)
		assert.Equal(t, []int64{1}, l.BoundAccounts)

		l, err = s.AppendAccount(ctx, key("append"), 2)
		require.NoError(t, err)
		assert.Equal(t, []int64{1, 2}, l.BoundAccounts)

		_, err = s.AppendAccount(ctx, key("append"), 3)
		assert.ErrorIs(t, err, license.ErrAccountLimitExceeded)

		l, err = s.AppendAccount(ctx, key("append"), 2)
		require.NoError(t, err)
		assert.Equal(t, []int64{1, 2}, l.BoundAccounts)
	})

	t.Run("AppendAccountMissing", func(t *testing.T) {
		_, err := s.AppendAccount(ctx, key("nope"), 1)
		assert.ErrorIs(t, err, license.ErrNotFound)
	})

	t.Run("ConcurrentAppendRespectsLimit", func(t *testing.T) {
		const seats, callers = 3, 40
		_, err := s.Insert(ctx, license.NewLicense{Key: key("race"), MaxAccounts: seats})
		require.NoError(t, err)

		var (
			wg       sync.WaitGroup
			mu       sync.Mutex
			accepted int
		)
		for i := range callers {
			wg.Add(1)
			go func(account int64) {
				defer wg.Done()
				_, err := s.AppendAccount(ctx, key("race"), account)
				if err == nil {
					mu.Lock()
					accepted++
					mu.Unlock()
					return
				}
				assert.ErrorIs(t, err, license.ErrAccountLimitExceeded)
			}(int64(i + 1))
		}
		wg.Wait()

		assert.Equal(t, seats, accepted)
		got, err := s.Lookup(ctx, key("race"))
		require.NoError(t, err)
		assert.Len(t, got.BoundAccounts, seats)
	})
}
