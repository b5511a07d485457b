package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/SscSPs/koperasi_core/internal/apperrors"
	"github.com/SscSPs/koperasi_core/internal/core/domain"
	portsrepo "github.com/SscSPs/koperasi_core/internal/core/ports/repositories"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newMember(tenantID, number string) domain.Member {
	now := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	return domain.Member{
		MemberID:     uuid.NewString(),
		TenantID:     tenantID,
		MemberNumber: number,
		Name:         "Member " + number,
		Status:       domain.MemberActive,
		JoinedAt:     now,
		AuditFields:  domain.NewAuditFields("tester", now),
	}
}

func TestWithinTransaction_RollsBackOnError(t *testing.T) {
	ctx := context.Background()
	store := NewStore()
	tenantID := uuid.NewString()
	kept := newMember(tenantID, "A-1")
	require.NoError(t, store.Tenant(tenantID).Members().SaveMember(ctx, kept))

	dropped := newMember(tenantID, "A-2")
	boom := errors.New("boom")
	err := store.WithinTransaction(ctx, tenantID, func(ctx context.Context, repos portsrepo.TenantRepositories) error {
		require.NoError(t, repos.Members().SaveMember(ctx, dropped))

		changed := kept
		changed.Status = domain.MemberLeft
		require.NoError(t, repos.Members().UpdateMember(ctx, changed))
		return boom
	})
	require.ErrorIs(t, err, boom)

	_, err = store.Tenant(tenantID).Members().FindMemberByID(ctx, dropped.MemberID)
	assert.ErrorIs(t, err, apperrors.ErrNotFound)

	got, err := store.Tenant(tenantID).Members().FindMemberByID(ctx, kept.MemberID)
	require.NoError(t, err)
	assert.Equal(t, domain.MemberActive, got.Status)
}

func TestWithinTransaction_SequencesSurviveRollback(t *testing.T) {
	ctx := context.Background()
	store := NewStore()
	tenantID := uuid.NewString()

	_ = store.WithinTransaction(ctx, tenantID, func(ctx context.Context, repos portsrepo.TenantRepositories) error {
		n, err := repos.Sequences().NextValue(ctx, "JE-202501")
		require.NoError(t, err)
		assert.Equal(t, int64(1), n)
		return errors.New("abort")
	})

	n, err := store.Tenant(tenantID).Sequences().NextValue(ctx, "JE-202501")
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)

	other, err := store.Tenant(uuid.NewString()).Sequences().NextValue(ctx, "JE-202501")
	require.NoError(t, err)
	assert.Equal(t, int64(1), other, "sequences are per tenant")
}

func TestTenantIsolation(t *testing.T) {
	ctx := context.Background()
	store := NewStore()
	tenantA, tenantB := uuid.NewString(), uuid.NewString()
	member := newMember(tenantA, "A-1")
	require.NoError(t, store.Tenant(tenantA).Members().SaveMember(ctx, member))

	_, err := store.Tenant(tenantB).Members().FindMemberByID(ctx, member.MemberID)
	assert.ErrorIs(t, err, apperrors.ErrCrossTenantAccess)

	err = store.Tenant(tenantB).Members().SaveMember(ctx, member)
	assert.ErrorIs(t, err, apperrors.ErrCrossTenantAccess, "rows are stamped with the handle's tenant")

	same := newMember(tenantB, "A-1")
	assert.NoError(t, store.Tenant(tenantB).Members().SaveMember(ctx, same), "member numbers are unique per tenant")

	eligible, err := store.Tenant(tenantB).Members().ListEligibleMembers(ctx, time.Date(2025, 12, 31, 0, 0, 0, 0, time.UTC), "", 10)
	require.NoError(t, err)
	require.Len(t, eligible, 1)
	assert.Equal(t, same.MemberID, eligible[0].MemberID)
}

func TestRowLock_TimesOut(t *testing.T) {
	ctx := context.Background()
	store := NewStore(WithLockTimeout(20 * time.Millisecond))
	tenantID := uuid.NewString()
	memberID := uuid.NewString()
	template := domain.SavingsAccount{
		SavingsAccountID: uuid.NewString(),
		TenantID:         tenantID,
		MemberID:         memberID,
		SavingsType:      domain.SavingsSukarela,
	}

	held := make(chan struct{})
	done := make(chan struct{})
	go func() {
		_ = store.WithinTransaction(ctx, tenantID, func(ctx context.Context, repos portsrepo.TenantRepositories) error {
			if _, err := repos.Savings().LockOrCreateSavingsAccount(ctx, template); err != nil {
				return err
			}
			close(held)
			<-done
			return nil
		})
	}()
	<-held

	err := store.WithinTransaction(ctx, tenantID, func(ctx context.Context, repos portsrepo.TenantRepositories) error {
		_, err := repos.Savings().LockSavingsAccount(ctx, memberID, domain.SavingsSukarela)
		return err
	})
	assert.ErrorIs(t, err, apperrors.ErrLockTimeout)
	assert.True(t, apperrors.IsTransient(err))

	close(done)
	require.Eventually(t, func() bool {
		return store.WithinTransaction(ctx, tenantID, func(ctx context.Context, repos portsrepo.TenantRepositories) error {
			_, err := repos.Savings().LockSavingsAccount(ctx, memberID, domain.SavingsSukarela)
			return err
		}) == nil
	}, time.Second, 10*time.Millisecond)
}

func TestListEligibleMembers_KeysetChunks(t *testing.T) {
	ctx := context.Background()
	store := NewStore()
	tenantID := uuid.NewString()
	repos := store.Tenant(tenantID)
	for _, n := range []string{"1", "2", "3", "4", "5"} {
		require.NoError(t, repos.Members().SaveMember(ctx, newMember(tenantID, n)))
	}
	late := newMember(tenantID, "late")
	late.JoinedAt = time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	require.NoError(t, repos.Members().SaveMember(ctx, late))

	end := time.Date(2025, 12, 31, 0, 0, 0, 0, time.UTC)
	seen := map[string]bool{}
	after := ""
	for {
		chunk, err := repos.Members().ListEligibleMembers(ctx, end, after, 2)
		require.NoError(t, err)
		if len(chunk) == 0 {
			break
		}
		assert.LessOrEqual(t, len(chunk), 2)
		for _, m := range chunk {
			assert.False(t, seen[m.MemberID])
			seen[m.MemberID] = true
		}
		after = chunk[len(chunk)-1].MemberID
	}
	assert.Len(t, seen, 5)
	assert.False(t, seen[late.MemberID])
}
