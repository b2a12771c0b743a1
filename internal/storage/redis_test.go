package storage

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/jaydenhoang5291/ue-profile/internal/observability"
	"github.com/jaydenhoang5291/ue-profile/internal/profile"
)

// setupTestRedis creates a miniredis instance for testing.
func setupTestRedis(t *testing.T) (*RedisStore, *miniredis.Miniredis) {
	t.Helper()

	mr := miniredis.RunT(t)

	cfg := &RedisConfig{
		Addr:         mr.Addr(),
		MaxRetries:   1,
		DialTimeout:  1 * time.Second,
		ReadTimeout:  1 * time.Second,
		WriteTimeout: 1 * time.Second,
		PoolSize:     5,
	}

	store := NewRedisStore(cfg)
	t.Cleanup(func() { _ = store.Close() })

	return store, mr
}

func newProfile(supi string) *profile.UeProfile {
	return &profile.UeProfile{
		Supi:   supi,
		PlmnID: profile.PlmnID{Mcc: "208", Mnc: "93"},
		OpType: profile.OpTypeOPC,
		Key:    "8baf473f2f8fd09487cccbd7097c6862",
	}
}

func TestRedisStore_Create(t *testing.T) {
	tests := []struct {
		name    string
		ue      *profile.UeProfile
		wantErr error
	}{
		{
			name: "valid profile",
			ue:   newProfile("imsi-208930000000001"),
		},
		{
			name:    "nil profile",
			ue:      nil,
			wantErr: profile.ErrInvalidProfile,
		},
		{
			name:    "empty supi",
			ue:      newProfile(""),
			wantErr: profile.ErrInvalidProfile,
		},
		{
			name: "missing plmn",
			ue: &profile.UeProfile{
				Supi: "imsi-208930000000002",
			},
			wantErr: profile.ErrInvalidProfile,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store, _ := setupTestRedis(t)
			ctx := context.Background()

			err := store.Create(ctx, tt.ue)
			if tt.wantErr != nil {
				require.Error(t, err)
				assert.True(t, errors.Is(err, tt.wantErr), "expected %v, got %v", tt.wantErr, err)
				return
			}
			require.NoError(t, err)

			got, err := store.Get(ctx, tt.ue.Supi)
			require.NoError(t, err)
			assert.Equal(t, tt.ue.Supi, got.Supi)
			assert.NotEmpty(t, got.ID)
			assert.False(t, got.CreatedAt.IsZero())
			assert.Equal(t, tt.ue.Key, got.Key)
		})
	}
}

func TestRedisStore_Create_Duplicate(t *testing.T) {
	store, _ := setupTestRedis(t)
	ctx := context.Background()

	require.NoError(t, store.Create(ctx, newProfile("imsi-208930000000001")))

	err := store.Create(ctx, newProfile("imsi-208930000000001"))
	assert.ErrorIs(t, err, ErrProfileExists)
}

func TestRedisStore_CreateMany(t *testing.T) {
	t.Run("stores every profile", func(t *testing.T) {
		store, _ := setupTestRedis(t)
		ctx := context.Background()

		batch := []*profile.UeProfile{
			newProfile("imsi-208930000000001"),
			newProfile("imsi-208930000000002"),
			newProfile("imsi-208930000000003"),
		}
		require.NoError(t, store.CreateMany(ctx, batch))

		list, err := store.List(ctx, ListFilter{})
		require.NoError(t, err)
		assert.Len(t, list, 3)
	})

	t.Run("all or nothing on conflict", func(t *testing.T) {
		store, _ := setupTestRedis(t)
		ctx := context.Background()

		require.NoError(t, store.Create(ctx, newProfile("imsi-208930000000002")))

		err := store.CreateMany(ctx, []*profile.UeProfile{
			newProfile("imsi-208930000000001"),
			newProfile("imsi-208930000000002"),
		})
		assert.ErrorIs(t, err, ErrProfileExists)

		_, err = store.Get(ctx, "imsi-208930000000001")
		assert.ErrorIs(t, err, ErrProfileNotFound)
	})

	t.Run("repeated supi in batch", func(t *testing.T) {
		store, _ := setupTestRedis(t)

		err := store.CreateMany(context.Background(), []*profile.UeProfile{
			newProfile("imsi-208930000000001"),
			newProfile("imsi-208930000000001"),
		})
		assert.ErrorIs(t, err, ErrProfileExists)
	})

	t.Run("empty batch", func(t *testing.T) {
		store, _ := setupTestRedis(t)
		assert.NoError(t, store.CreateMany(context.Background(), nil))
	})
}

func TestRedisStore_Get(t *testing.T) {
	store, mr := setupTestRedis(t)
	ctx := context.Background()

	require.NoError(t, store.Create(ctx, newProfile("imsi-208930000000001")))

	tests := []struct {
		name    string
		supi    string
		wantErr error
	}{
		{name: "existing", supi: "imsi-208930000000001"},
		{name: "missing", supi: "imsi-208930000000009", wantErr: ErrProfileNotFound},
		{name: "empty", supi: "", wantErr: ErrInvalidSUPI},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := store.Get(ctx, tt.supi)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.supi, got.Supi)
		})
	}

	t.Run("corrupted data", func(t *testing.T) {
		require.NoError(t, mr.Set(profileKeyPrefix+"imsi-bad", "{not json"))
		_, err := store.Get(ctx, "imsi-bad")
		require.Error(t, err)
		assert.NotErrorIs(t, err, ErrProfileNotFound)
	})
}

func TestRedisStore_Update(t *testing.T) {
	store, _ := setupTestRedis(t)
	ctx := context.Background()

	original := newProfile("imsi-208930000000001")
	original.UserID = "user-1"
	original.Suci = "suci-0-208-93-0000-0-0-0000000001"
	require.NoError(t, store.Create(ctx, original))

	stored, err := store.Get(ctx, original.Supi)
	require.NoError(t, err)

	update := newProfile("imsi-999999999999999")
	update.Amf = "8001"
	require.NoError(t, store.Update(ctx, original.Supi, update))

	got, err := store.Get(ctx, original.Supi)
	require.NoError(t, err)
	assert.Equal(t, "8001", got.Amf)
	assert.Equal(t, original.Supi, got.Supi, "supi cannot be overwritten")
	assert.Equal(t, stored.ID, got.ID)
	assert.Equal(t, "user-1", got.UserID)
	assert.Equal(t, stored.Suci, got.Suci)
	assert.True(t, stored.CreatedAt.Equal(got.CreatedAt))

	_, err = store.Get(ctx, "imsi-999999999999999")
	assert.ErrorIs(t, err, ErrProfileNotFound)

	err = store.Update(ctx, "imsi-208930000000009", newProfile("imsi-208930000000009"))
	assert.ErrorIs(t, err, ErrProfileNotFound)

	err = store.Update(ctx, "", newProfile("imsi-208930000000001"))
	assert.ErrorIs(t, err, ErrInvalidSUPI)

	bad := newProfile("")
	bad.OpType = "XOR"
	err = store.Update(ctx, original.Supi, bad)
	assert.ErrorIs(t, err, profile.ErrInvalidProfile)
}

func TestRedisStore_Delete(t *testing.T) {
	store, mr := setupTestRedis(t)
	ctx := context.Background()

	ue := newProfile("imsi-208930000000001")
	ue.UserID = "user-1"
	require.NoError(t, store.Create(ctx, ue))

	require.NoError(t, store.Delete(ctx, ue.Supi))

	_, err := store.Get(ctx, ue.Supi)
	assert.ErrorIs(t, err, ErrProfileNotFound)
	assert.False(t, mr.Exists(profileKeyPrefix+ue.Supi))

	members, err := mr.ZMembers(profileIndexKey)
	if err == nil {
		assert.NotContains(t, members, ue.Supi)
	}

	err = store.Delete(ctx, ue.Supi)
	assert.ErrorIs(t, err, ErrProfileNotFound)
}

func TestRedisStore_List(t *testing.T) {
	store, _ := setupTestRedis(t)
	ctx := context.Background()

	base := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)
	for i, owner := range []string{"alice", "bob", "alice"} {
		ue := newProfile(fmt.Sprintf("imsi-20893000000000%d", i+1))
		ue.UserID = owner
		ue.CreatedAt = base.Add(time.Duration(3-i) * time.Hour)
		require.NoError(t, store.Create(ctx, ue))
	}

	all, err := store.List(ctx, ListFilter{})
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, "imsi-208930000000003", all[0].Supi, "oldest first")
	assert.Equal(t, "imsi-208930000000001", all[2].Supi)

	alice, err := store.List(ctx, ListFilter{UserID: "alice"})
	require.NoError(t, err)
	require.Len(t, alice, 2)
	assert.Equal(t, "imsi-208930000000003", alice[0].Supi)

	matched, err := store.List(ctx, ListFilter{SupiContains: "IMSI-2089300000000002"})
	require.NoError(t, err)
	require.Len(t, matched, 1)
	assert.Equal(t, "bob", matched[0].UserID)

	none, err := store.List(ctx, ListFilter{UserID: "carol"})
	require.NoError(t, err)
	assert.Empty(t, none)
	assert.NotNil(t, none)
}

func TestRedisStore_List_SkipsCorrupted(t *testing.T) {
	store, mr := setupTestRedis(t)
	ctx := context.Background()

	require.NoError(t, store.Create(ctx, newProfile("imsi-208930000000001")))
	require.NoError(t, store.Create(ctx, newProfile("imsi-208930000000002")))
	require.NoError(t, mr.Set(profileKeyPrefix+"imsi-208930000000002", "garbage"))

	list, err := store.List(ctx, ListFilter{})
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "imsi-208930000000001", list[0].Supi)
}

func TestRedisStore_PublishesEvents(t *testing.T) {
	store, _ := setupTestRedis(t)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	sub := store.Client().Subscribe(ctx, profileEventChannel)
	defer sub.Close()
	_, err := sub.Receive(ctx)
	require.NoError(t, err)

	require.NoError(t, store.Create(ctx, newProfile("imsi-208930000000001")))
	require.NoError(t, store.Delete(ctx, "imsi-208930000000001"))

	var kinds []string
	for range 2 {
		msg, err := sub.ReceiveMessage(ctx)
		require.NoError(t, err)
		var ev Event
		require.NoError(t, ev.UnmarshalBinary([]byte(msg.Payload)))
		assert.Equal(t, "imsi-208930000000001", ev.Supi)
		kinds = append(kinds, ev.Event)
	}
	assert.Equal(t, []string{EventCreated, EventDeleted}, kinds)
}

func TestRedisStore_RecordsOperations(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	metrics := observability.NewMetrics("test", prometheus.NewRegistry())
	core, logs := observer.New(zapcore.DebugLevel)
	store := NewRedisStoreWithClient(client, WithMetrics(metrics), WithLogger(zap.New(core)))
	ctx := context.Background()

	require.NoError(t, store.Create(ctx, newProfile("imsi-208930000000001")))
	_, err := store.Get(ctx, "imsi-208930000000404")
	require.ErrorIs(t, err, ErrProfileNotFound)

	assert.InDelta(t, 1.0, testutil.ToFloat64(metrics.RedisOperationsTotal.WithLabelValues("create", "success")), 0)
	assert.InDelta(t, 1.0, testutil.ToFloat64(metrics.RedisOperationsTotal.WithLabelValues("get", "success")), 0)

	mr.Close()
	_, err = store.List(ctx, ListFilter{})
	require.Error(t, err)
	assert.InDelta(t, 1.0, testutil.ToFloat64(metrics.RedisOperationsTotal.WithLabelValues("list", "error")), 0)
	assert.InDelta(t, 1.0, testutil.ToFloat64(metrics.RedisErrorsTotal.WithLabelValues("list", "general")), 0)

	failed := logs.FilterMessage("redis operation failed").All()
	require.Len(t, failed, 1)
	fields := failed[0].ContextMap()
	assert.Equal(t, "list", fields["operation"])
	assert.Equal(t, "storage", fields["component"])

	completed := logs.FilterMessage("redis operation completed").All()
	require.Len(t, completed, 2)
	assert.Equal(t, "ueprofile:imsi-208930000000001", completed[0].ContextMap()["key"])
}

func TestRedisStore_Count(t *testing.T) {
	store, _ := setupTestRedis(t)
	ctx := context.Background()

	n, err := store.Count(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)

	require.NoError(t, store.CreateMany(ctx, []*profile.UeProfile{
		newProfile("imsi-208930000000001"),
		newProfile("imsi-208930000000002"),
	}))
	require.NoError(t, store.Delete(ctx, "imsi-208930000000001"))

	n, err = store.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
}

func TestRedisStore_Ping(t *testing.T) {
	store, mr := setupTestRedis(t)
	ctx := context.Background()

	require.NoError(t, store.Ping(ctx))

	mr.Close()
	err := store.Ping(ctx)
	assert.ErrorIs(t, err, ErrStorageUnavailable)
}

func TestListFilter_Matches(t *testing.T) {
	ue := newProfile("imsi-208930000000001")
	ue.UserID = "alice"

	assert.True(t, ListFilter{}.Matches(ue))
	assert.True(t, ListFilter{SupiContains: "0001"}.Matches(ue))
	assert.True(t, ListFilter{SupiContains: "IMSI", UserID: "alice"}.Matches(ue))
	assert.False(t, ListFilter{SupiContains: "9999"}.Matches(ue))
	assert.False(t, ListFilter{UserID: "bob"}.Matches(ue))
}
