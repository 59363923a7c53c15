package flow

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"path"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
)

const MaxPhotoSize = 5 * 1024 * 1024

var unsafeFilenameChars = regexp.MustCompile(`[^A-Za-z0-9._-]+`)

type Photo struct {
	Filename    string
	ContentType string
	Size        int64
	Body        io.Reader
}

// ValidatePhoto checks the type and size of an upload before anything is
// stored.
func ValidatePhoto(p Photo) error {
	if !strings.HasPrefix(strings.ToLower(p.ContentType), "image/") {
		return NewInvalidPhotoError("Please select an image file")
	}
	if p.Size <= 0 {
		return NewInvalidPhotoError("Please select an image file")
	}
	if p.Size > MaxPhotoSize {
		return NewInvalidPhotoError("File size must be less than 5MB")
	}
	return nil
}

// PhotoKey namespaces uploads by registration and upload time so repeat
// uploads never overwrite each other.
func PhotoKey(regID uuid.UUID, at time.Time, filename string) string {
	name := unsafeFilenameChars.ReplaceAllString(path.Base(filename), "-")
	name = strings.Trim(name, "-.")
	if name == "" {
		name = "photo"
	}

	return fmt.Sprintf("reunion-photos/%s/%d-%s", regID, at.UnixMilli(), name)
}

func (c *Controller) UploadPhoto(ctx context.Context, h Handoff, p Photo) (updated Handoff, err error) {
	ctx, span := c.startSpan(ctx, "upload_photo", STEP_PHOTO_UPLOAD)
	defer func() { endSpan(span, err) }()

	if err := EntryGuard(STEP_PHOTO_UPLOAD, h); err != nil {
		return h, err
	}
	if err := ValidatePhoto(p); err != nil {
		return h, err
	}
	span.SetAttributes(attribute.String(attrRegistrationID, h.RegistrationID.String()))

	now := c.now()
	key := PhotoKey(h.RegistrationID, now, p.Filename)

	url, err := c.blobs.Put(ctx, key, p.Body, p.Size, p.ContentType)
	if err != nil {
		c.logger.ErrorContext(ctx, "failed to store photo", slog.String("error", err.Error()), slog.String("key", key))
		return h, NewBlobStoreUnavailableError(err)
	}

	reg, err := c.repo.AttachPhoto(ctx, h.RegistrationID, url, now)
	if err != nil {
		c.logger.ErrorContext(ctx, "failed to attach photo", slog.String("error", err.Error()), slog.String("url", url))
		return h, NewStoreUnavailableError(err)
	}

	h.PhotoURL = reg.PhotoURL
	return h, nil
}

// SkipPhoto moves on to the success step without an upload. The record's photo
// stays unset.
func (c *Controller) SkipPhoto(ctx context.Context, h Handoff) (updated Handoff, err error) {
	ctx, span := c.startSpan(ctx, "skip_photo", STEP_PHOTO_UPLOAD)
	defer func() { endSpan(span, err) }()

	if err := EntryGuard(STEP_PHOTO_UPLOAD, h); err != nil {
		return h, err
	}

	c.logger.InfoContext(ctx, "photo upload skipped", slog.String("registration-id", h.RegistrationID.String()))
	return h, nil
}
