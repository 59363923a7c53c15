package sqlite

import (
	"context"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"github.com/Rhymond/go-money"
	"github.com/classof2022/reunion-registration/registration"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var baseTime = time.Date(2025, 5, 1, 10, 0, 0, 0, time.UTC)

func newTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := Open(context.Background(), filepath.Join(t.TempDir(), "reunion.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func pendingRegistration(name string, registeredAt time.Time) registration.Registration {
	return registration.Registration{
		ID:             uuid.New(),
		Version:        1,
		Name:           name,
		Email:          "asha@example.com",
		Phone:          "9876543210",
		Gender:         registration.FEMALE,
		FoodPreference: registration.NON_VEG,
		PaymentStatus:  registration.PENDING,
		RegisteredAt:   registeredAt,
		Amount:         money.New(150000, money.INR),
	}
}

func requireReason(t *testing.T, err error, reason registration.ErrorReason) {
	t.Helper()
	var regErr *registration.Error
	require.ErrorAs(t, err, &regErr)
	assert.Equal(t, reason, regErr.Reason)
}

func TestOpenInMemory(t *testing.T) {
	db, err := Open(context.Background(), ":memory:")
	require.NoError(t, err)
	defer db.Close()

	reg := pendingRegistration("Asha Rao", baseTime)
	require.NoError(t, db.CreateRegistration(context.Background(), reg))

	got, err := db.GetRegistration(context.Background(), reg.ID)
	require.NoError(t, err)
	assert.Equal(t, reg.ID, got.ID)
}

func TestReopenKeepsData(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "reunion.db")

	db, err := Open(ctx, path)
	require.NoError(t, err)
	reg := pendingRegistration("Asha Rao", baseTime)
	require.NoError(t, db.CreateRegistration(ctx, reg))
	require.NoError(t, db.Close())

	db, err = Open(ctx, path)
	require.NoError(t, err)
	defer db.Close()

	got, err := db.GetRegistration(ctx, reg.ID)
	require.NoError(t, err)
	assert.Equal(t, reg, got)
}

func TestCreateRegistration(t *testing.T) {
	ctx := context.Background()

	t.Run("create and read back", func(t *testing.T) {
		db := newTestDB(t)
		reg := pendingRegistration("Asha Rao", baseTime)

		require.NoError(t, db.CreateRegistration(ctx, reg))

		got, err := db.GetRegistration(ctx, reg.ID)
		require.NoError(t, err)
		assert.Equal(t, reg, got)
	})

	t.Run("same id twice", func(t *testing.T) {
		db := newTestDB(t)
		reg := pendingRegistration("Asha Rao", baseTime)

		require.NoError(t, db.CreateRegistration(ctx, reg))
		requireReason(t, db.CreateRegistration(ctx, reg), registration.REASON_REGISTRATION_ALREADY_EXISTS)
	})

	t.Run("does not exist", func(t *testing.T) {
		db := newTestDB(t)

		_, err := db.GetRegistration(ctx, uuid.New())
		requireReason(t, err, registration.REASON_REGISTRATION_DOES_NOT_EXIST)
	})
}

func TestCompletePayment(t *testing.T) {
	ctx := context.Background()
	paidAt := baseTime.Add(5 * time.Minute)

	t.Run("completes once", func(t *testing.T) {
		db := newTestDB(t)
		reg := pendingRegistration("Asha Rao", baseTime)
		require.NoError(t, db.CreateRegistration(ctx, reg))

		first, err := db.CompletePayment(ctx, reg.ID, "pay_123", "order_123", paidAt)
		require.NoError(t, err)
		assert.Equal(t, registration.COMPLETED, first.PaymentStatus)
		assert.Equal(t, 2, first.Version)

		second, err := db.CompletePayment(ctx, reg.ID, "pay_123", "order_123", paidAt.Add(time.Hour))
		require.NoError(t, err)
		assert.Equal(t, first, second)

		stored, err := db.GetRegistration(ctx, reg.ID)
		require.NoError(t, err)
		assert.Equal(t, first, stored)
	})

	t.Run("a payment reference only completes one registration", func(t *testing.T) {
		db := newTestDB(t)
		first := pendingRegistration("Asha Rao", baseTime)
		second := pendingRegistration("Ravi Kumar", baseTime.Add(time.Second))
		require.NoError(t, db.CreateRegistration(ctx, first))
		require.NoError(t, db.CreateRegistration(ctx, second))

		_, err := db.CompletePayment(ctx, first.ID, "pay_123", "order_123", paidAt)
		require.NoError(t, err)

		_, err = db.CompletePayment(ctx, second.ID, "pay_123", "order_123", paidAt)
		requireReason(t, err, registration.REASON_PAYMENT_ALREADY_RECORDED)

		stored, err := db.GetRegistration(ctx, second.ID)
		require.NoError(t, err)
		assert.Equal(t, registration.PENDING, stored.PaymentStatus)
		assert.Equal(t, 1, stored.Version)
	})

	t.Run("a different payment cannot overwrite a recorded one", func(t *testing.T) {
		db := newTestDB(t)
		reg := pendingRegistration("Asha Rao", baseTime)
		require.NoError(t, db.CreateRegistration(ctx, reg))
		_, err := db.CompletePayment(ctx, reg.ID, "pay_123", "order_123", paidAt)
		require.NoError(t, err)

		_, err = db.CompletePayment(ctx, reg.ID, "pay_456", "order_456", paidAt)
		requireReason(t, err, registration.REASON_PAYMENT_ALREADY_RECORDED)
	})

	t.Run("failed registrations cannot complete", func(t *testing.T) {
		db := newTestDB(t)
		reg := pendingRegistration("Asha Rao", baseTime)
		require.NoError(t, db.CreateRegistration(ctx, reg))
		_, err := db.FailPayment(ctx, reg.ID)
		require.NoError(t, err)

		_, err = db.CompletePayment(ctx, reg.ID, "pay_123", "order_123", paidAt)
		requireReason(t, err, registration.REASON_INVALID_PAYMENT_TRANSITION)
	})
}

func TestAttachPhoto(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t)
	reg := pendingRegistration("Asha Rao", baseTime)
	require.NoError(t, db.CreateRegistration(ctx, reg))

	_, err := db.AttachPhoto(ctx, reg.ID, "", baseTime)
	requireReason(t, err, registration.REASON_INVALID_PHOTO_URL)

	updated, err := db.AttachPhoto(ctx, reg.ID, "https://photos.example.com/a.jpg", baseTime.Add(time.Minute))
	require.NoError(t, err)

	stored, err := db.GetRegistration(ctx, reg.ID)
	require.NoError(t, err)
	assert.Equal(t, updated, stored)
	assert.True(t, stored.PhotoUploadedAt.Equal(baseTime.Add(time.Minute)))
}

func TestListRegistrations(t *testing.T) {
	ctx := context.Background()

	t.Run("newest first across pages", func(t *testing.T) {
		db := newTestDB(t)
		var created []registration.Registration
		for i := range 5 {
			reg := pendingRegistration(fmt.Sprintf("Guest %d", i), baseTime.Add(time.Duration(i)*time.Minute))
			require.NoError(t, db.CreateRegistration(ctx, reg))
			created = append(created, reg)
		}

		var seen []uuid.UUID
		var cursor *string
		for {
			page, err := db.ListRegistrations(ctx, 2, cursor)
			require.NoError(t, err)
			for _, reg := range page.Data {
				seen = append(seen, reg.ID)
			}
			if !page.HasNextPage {
				assert.Nil(t, page.Cursor)
				break
			}
			cursor = page.Cursor
		}

		require.Len(t, seen, 5)
		for i, id := range seen {
			assert.Equal(t, created[4-i].ID, id)
		}
	})

	t.Run("same registration time", func(t *testing.T) {
		db := newTestDB(t)
		for i := range 3 {
			require.NoError(t, db.CreateRegistration(ctx, pendingRegistration(fmt.Sprintf("Guest %d", i), baseTime)))
		}

		all, err := registration.ListAll(ctx, db)
		require.NoError(t, err)
		assert.Len(t, all, 3)
	})

	t.Run("invalid cursor", func(t *testing.T) {
		db := newTestDB(t)
		for _, bad := range []string{"!!!", encodeCursor("yesterday", uuid.NewString()), "bm8tc2VwYXJhdG9y"} {
			_, err := db.ListRegistrations(ctx, 10, &bad)
			requireReason(t, err, registration.REASON_INVALID_CURSOR)
		}
	})
}
