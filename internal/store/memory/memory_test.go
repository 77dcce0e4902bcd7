package memory

import (
	"context"
	"math/big"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/save-dai/savedai-contract-v1/internal/domain"
)

func TestBalanceStore(t *testing.T) {
	s := NewBalanceStore()
	ctx := context.Background()

	// Unknown holders read as zero, not as an error.
	b, err := s.Get(ctx, "alice")
	require.NoError(t, err)
	require.Equal(t, 0, b.Sign())

	require.NoError(t, s.Set(ctx, "alice", big.NewInt(100)))
	b, err = s.Get(ctx, "alice")
	require.NoError(t, err)
	require.Equal(t, 0, b.Cmp(big.NewInt(100)))

	// The store keeps its own copy; mutating the returned value is safe.
	b.SetInt64(999)
	b, err = s.Get(ctx, "alice")
	require.NoError(t, err)
	require.Equal(t, 0, b.Cmp(big.NewInt(100)))

	require.NoError(t, s.Set(ctx, "bob", big.NewInt(1)))
	all, err := s.All(ctx)
	require.NoError(t, err)
	require.Len(t, all, 2)
}

func TestAllowanceStoreKeysOnBothParties(t *testing.T) {
	s := NewAllowanceStore()
	ctx := context.Background()

	require.NoError(t, s.Set(ctx, "alice", "bob", big.NewInt(10)))
	require.NoError(t, s.Set(ctx, "bob", "alice", big.NewInt(20)))

	a, err := s.Get(ctx, "alice", "bob")
	require.NoError(t, err)
	require.Equal(t, 0, a.Cmp(big.NewInt(10)))

	a, err = s.Get(ctx, "bob", "alice")
	require.NoError(t, err)
	require.Equal(t, 0, a.Cmp(big.NewInt(20)))

	all, err := s.All(ctx)
	require.NoError(t, err)
	require.Len(t, all, 2)
	require.Equal(t, "alice", all[0].Owner)
	require.Equal(t, "bob", all[1].Owner)
}

func TestVaultStore(t *testing.T) {
	s := NewVaultStore()
	ctx := context.Background()

	_, err := s.Get(ctx, "alice")
	require.ErrorIs(t, err, domain.ErrNotFound)

	v := domain.Vault{ID: 1, Holder: "alice", Balance: big.NewInt(50), CreatedAt: time.Now()}
	require.NoError(t, s.Put(ctx, v))

	got, err := s.Get(ctx, "alice")
	require.NoError(t, err)
	require.Equal(t, uint64(1), got.ID)
	require.Equal(t, 0, got.Balance.Cmp(big.NewInt(50)))

	require.NoError(t, s.Put(ctx, domain.Vault{ID: 2, Holder: "bob", Balance: big.NewInt(7)}))
	all, err := s.All(ctx)
	require.NoError(t, err)
	require.Len(t, all, 2)
	// All returns id order regardless of insertion order.
	require.Equal(t, uint64(1), all[0].ID)
	require.Equal(t, uint64(2), all[1].ID)
}

func TestTokenMetaStore(t *testing.T) {
	s := NewTokenMetaStore(domain.TokenMeta{Name: "saveDAI", Owner: "op"})
	ctx := context.Background()

	meta, err := s.Get(ctx)
	require.NoError(t, err)
	require.Equal(t, "saveDAI", meta.Name)

	meta.Paused = true
	require.NoError(t, s.Put(ctx, meta))
	meta, err = s.Get(ctx)
	require.NoError(t, err)
	require.True(t, meta.Paused)
}

func TestAuditStoreListPagination(t *testing.T) {
	s := NewAuditStore()
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		require.NoError(t, s.Log(ctx, "mint", map[string]any{"i": i}))
	}

	page, err := s.List(ctx, domain.ListOpts{Limit: 2})
	require.NoError(t, err)
	require.Len(t, page, 2)

	page, err = s.List(ctx, domain.ListOpts{Limit: 2, Offset: 4})
	require.NoError(t, err)
	require.Len(t, page, 1)
	require.NotEmpty(t, page[0].ID)

	page, err = s.List(ctx, domain.ListOpts{Offset: 10})
	require.NoError(t, err)
	require.Empty(t, page)
}

func TestAuditStoreListBefore(t *testing.T) {
	s := NewAuditStore()
	ctx := context.Background()

	require.NoError(t, s.Log(ctx, "mint", nil))
	require.NoError(t, s.Log(ctx, "redeem", nil))

	old, err := s.ListBefore(ctx, time.Now().Add(time.Minute), 0)
	require.NoError(t, err)
	require.Len(t, old, 2)

	old, err = s.ListBefore(ctx, time.Now().Add(-time.Minute), 0)
	require.NoError(t, err)
	require.Empty(t, old)
}
