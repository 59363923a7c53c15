package sqlite

import (
	"context"
	"database/sql"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/Rhymond/go-money"
	"github.com/classof2022/reunion-registration/registration"
	"github.com/google/uuid"
	"github.com/ncruces/go-sqlite3"
)

var _ registration.Repository = &DB{}

// Fixed width so text ordering matches time ordering.
const timeFormat = "2006-01-02T15:04:05.000000000Z"

const registrationColumns = `id, version, name, email, phone, gender, food_preference, payment_status,
	payment_reference, payment_order_id, paid_at, photo_url, photo_uploaded_at, registered_at,
	amount_minor, amount_currency`

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(timeFormat)
}

func parseTime(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, nil
	}
	return time.Parse(timeFormat, s)
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRegistration(row rowScanner) (registration.Registration, error) {
	var (
		id, gender, food, status       string
		paidAt, photoUploadedAt, regAt string
		amountMinor                    int64
		currency                       string
		reg                            registration.Registration
	)

	err := row.Scan(&id, &reg.Version, &reg.Name, &reg.Email, &reg.Phone, &gender, &food, &status,
		&reg.PaymentReference, &reg.PaymentOrderID, &paidAt, &reg.PhotoURL, &photoUploadedAt, &regAt,
		&amountMinor, &currency)
	if err != nil {
		return registration.Registration{}, err
	}

	if reg.ID, err = uuid.Parse(id); err != nil {
		return registration.Registration{}, fmt.Errorf("invalid registration id %q: %w", id, err)
	}
	if reg.Gender, err = registration.ParseGender(gender); err != nil {
		return registration.Registration{}, err
	}
	if reg.FoodPreference, err = registration.ParseFoodPreference(food); err != nil {
		return registration.Registration{}, err
	}
	if reg.PaymentStatus, err = registration.ParsePaymentStatus(status); err != nil {
		return registration.Registration{}, err
	}
	if reg.PaidAt, err = parseTime(paidAt); err != nil {
		return registration.Registration{}, err
	}
	if reg.PhotoUploadedAt, err = parseTime(photoUploadedAt); err != nil {
		return registration.Registration{}, err
	}
	if reg.RegisteredAt, err = parseTime(regAt); err != nil {
		return registration.Registration{}, err
	}
	reg.Amount = money.New(amountMinor, currency)

	return reg, nil
}

func registrationArgs(reg registration.Registration) []any {
	var amountMinor int64
	var currency string
	if reg.Amount != nil {
		amountMinor = reg.Amount.Amount()
		currency = reg.Amount.Currency().Code
	}

	return []any{
		reg.ID.String(), reg.Version, reg.Name, reg.Email, reg.Phone, reg.Gender.String(),
		reg.FoodPreference.String(), reg.PaymentStatus.String(), reg.PaymentReference, reg.PaymentOrderID,
		formatTime(reg.PaidAt), reg.PhotoURL, formatTime(reg.PhotoUploadedAt), formatTime(reg.RegisteredAt),
		amountMinor, currency,
	}
}

func (d *DB) CreateRegistration(ctx context.Context, reg registration.Registration) error {
	_, err := d.db.ExecContext(ctx,
		`INSERT INTO registrations (`+registrationColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		registrationArgs(reg)...)
	if err != nil {
		if errors.Is(err, sqlite3.CONSTRAINT_PRIMARYKEY) {
			return registration.NewRegistrationAlreadyExistsError(fmt.Sprintf("Registration with ID %q already exists", reg.ID), err)
		} else if errors.Is(err, context.DeadlineExceeded) {
			return registration.NewTimeoutError("CreateRegistration timed out")
		}
		return registration.NewFailedToWriteError("Failed to save registration", err)
	}

	return nil
}

func (d *DB) GetRegistration(ctx context.Context, id uuid.UUID) (registration.Registration, error) {
	return getRegistration(ctx, d.db, id)
}

type queryer interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func getRegistration(ctx context.Context, q queryer, id uuid.UUID) (registration.Registration, error) {
	row := q.QueryRowContext(ctx, `SELECT `+registrationColumns+` FROM registrations WHERE id = ?`, id.String())

	reg, err := scanRegistration(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return registration.Registration{}, registration.NewRegistrationDoesNotExistsError(fmt.Sprintf("Registration with id %q not found", id), nil)
		} else if errors.Is(err, context.DeadlineExceeded) {
			return registration.Registration{}, registration.NewTimeoutError("GetRegistration timed out")
		}
		return registration.Registration{}, registration.NewFailedToFetchError(fmt.Sprintf("Failed to fetch registration with id %q", id), err)
	}
	return reg, nil
}

func (d *DB) CompletePayment(ctx context.Context, id uuid.UUID, paymentRef string, orderID string, paidAt time.Time) (registration.Registration, error) {
	return d.applyTransition(ctx, id,
		func(reg registration.Registration) (registration.Registration, bool, error) {
			return reg.WithPaymentCompleted(paymentRef, orderID, paidAt)
		},
		func(ctx context.Context, tx *sql.Tx, updated registration.Registration) error {
			_, err := tx.ExecContext(ctx,
				`INSERT INTO payment_claims (payment_reference, registration_id, claimed_at) VALUES (?, ?, ?)`,
				paymentRef, updated.ID.String(), formatTime(paidAt))
			if err != nil {
				if errors.Is(err, sqlite3.CONSTRAINT_PRIMARYKEY) {
					return registration.NewPaymentAlreadyRecordedError(paymentRef)
				}
				return registration.NewFailedToWriteError("Failed to claim payment reference", err)
			}
			return nil
		},
	)
}

func (d *DB) FailPayment(ctx context.Context, id uuid.UUID) (registration.Registration, error) {
	return d.applyTransition(ctx, id,
		func(reg registration.Registration) (registration.Registration, bool, error) {
			return reg.WithPaymentFailed()
		},
		nil,
	)
}

func (d *DB) AttachPhoto(ctx context.Context, id uuid.UUID, photoURL string, uploadedAt time.Time) (registration.Registration, error) {
	return d.applyTransition(ctx, id,
		func(reg registration.Registration) (registration.Registration, bool, error) {
			updated, err := reg.WithPhoto(photoURL, uploadedAt)
			return updated, err == nil, err
		},
		nil,
	)
}

type companionFunc func(ctx context.Context, tx *sql.Tx, updated registration.Registration) error

// applyTransition runs read, transition and conditional write in one
// transaction. The version check guards against writers outside this process.
func (d *DB) applyTransition(
	ctx context.Context,
	id uuid.UUID,
	transition func(registration.Registration) (registration.Registration, bool, error),
	companion companionFunc,
) (registration.Registration, error) {
	tx, err := d.db.BeginTx(ctx, nil)
	if err != nil {
		return registration.Registration{}, registration.NewFailedToWriteError("Failed to start transaction", err)
	}
	defer tx.Rollback()

	current, err := getRegistration(ctx, tx, id)
	if err != nil {
		return registration.Registration{}, err
	}

	updated, changed, err := transition(current)
	if err != nil {
		return current, err
	}
	if !changed {
		return current, nil
	}
	updated.Version = current.Version + 1

	args := registrationArgs(updated)
	// Drop id; it goes in the WHERE clause.
	setArgs := append(args[1:], updated.ID.String(), current.Version)
	res, err := tx.ExecContext(ctx, `UPDATE registrations SET
		version = ?, name = ?, email = ?, phone = ?, gender = ?, food_preference = ?, payment_status = ?,
		payment_reference = ?, payment_order_id = ?, paid_at = ?, photo_url = ?, photo_uploaded_at = ?,
		registered_at = ?, amount_minor = ?, amount_currency = ?
		WHERE id = ? AND version = ?`, setArgs...)
	if err != nil {
		return current, registration.NewFailedToWriteError("Failed to update registration", err)
	}
	if n, err := res.RowsAffected(); err != nil || n != 1 {
		return current, registration.NewVersionConflictError("Registration changed while updating", err)
	}

	if companion != nil {
		if err := companion(ctx, tx, updated); err != nil {
			return current, err
		}
	}

	if err := tx.Commit(); err != nil {
		return current, registration.NewFailedToWriteError("Failed to commit registration update", err)
	}
	return updated, nil
}

func (d *DB) ListRegistrations(ctx context.Context, limit int32, cursor *string) (registration.ListRegistrationsResponse, error) {
	query := `SELECT ` + registrationColumns + ` FROM registrations`
	args := []any{}

	if cursor != nil {
		registeredAt, id, err := decodeCursor(*cursor)
		if err != nil {
			return registration.ListRegistrationsResponse{}, registration.NewInvalidCursorError("Invalid cursor", err)
		}
		query += ` WHERE (registered_at, id) < (?, ?)`
		args = append(args, registeredAt, id)
	}
	// Fetch 1 more than limit to check if there is another page or not
	query += ` ORDER BY registered_at DESC, id DESC LIMIT ?`
	args = append(args, limit+1)

	rows, err := d.db.QueryContext(ctx, query, args...)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return registration.ListRegistrationsResponse{}, registration.NewTimeoutError("ListRegistrations timed out")
		}
		return registration.ListRegistrationsResponse{}, registration.NewFailedToFetchError("Failed to fetch registrations", err)
	}
	defer rows.Close()

	var regs []registration.Registration
	for rows.Next() {
		reg, err := scanRegistration(rows)
		if err != nil {
			return registration.ListRegistrationsResponse{}, registration.NewFailedToTranslateToDBModelError("Failed to read registration row", err)
		}
		regs = append(regs, reg)
	}
	if err := rows.Err(); err != nil {
		return registration.ListRegistrationsResponse{}, registration.NewFailedToFetchError("Failed to fetch registrations", err)
	}

	hasNextPage := len(regs) > int(limit)
	var newCursor *string
	if hasNextPage {
		regs = regs[:limit]
		last := regs[len(regs)-1]
		c := encodeCursor(formatTime(last.RegisteredAt), last.ID.String())
		newCursor = &c
	}

	return registration.ListRegistrationsResponse{
		Data:        regs,
		Cursor:      newCursor,
		HasNextPage: hasNextPage,
	}, nil
}

func encodeCursor(registeredAt string, id string) string {
	return base64.RawURLEncoding.EncodeToString([]byte(registeredAt + "|" + id))
}

func decodeCursor(cursor string) (string, string, error) {
	raw, err := base64.RawURLEncoding.DecodeString(cursor)
	if err != nil {
		return "", "", fmt.Errorf("cursor is not valid base64: %w", err)
	}

	registeredAt, id, ok := strings.Cut(string(raw), "|")
	if !ok {
		return "", "", errors.New("cursor is missing its separator")
	}
	if _, err := parseTime(registeredAt); err != nil {
		return "", "", fmt.Errorf("cursor has an invalid time: %w", err)
	}
	if _, err := uuid.Parse(id); err != nil {
		return "", "", fmt.Errorf("cursor has an invalid id: %w", err)
	}
	return registeredAt, id, nil
}
