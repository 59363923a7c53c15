package api

import (
	"errors"
	"log/slog"
	"mime"
	"net/http"

	"github.com/classof2022/reunion-registration/flow"
)

const (
	photoFormField = "photo"
	// Room for the multipart envelope around a maximum size photo.
	maxPhotoRequestSize = flow.MaxPhotoSize + 1<<20
	photoMemoryLimit    = 1 << 20
)

func (a *API) postPhoto(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := a.getLoggerOrBaseLogger(ctx)

	h := a.handoffs.read(r)
	if err := flow.EntryGuard(flow.STEP_PHOTO_UPLOAD, h); err != nil {
		a.writeFlowError(w, r, err)
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxPhotoRequestSize)
	if err := r.ParseMultipartForm(photoMemoryLimit); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			a.writeFlowError(w, r, flow.NewInvalidPhotoError("File size must be less than 5MB"))
			return
		}
		logger.WarnContext(ctx, "Invalid photo upload body", slog.String("error", err.Error()))
		writeError(w, http.StatusBadRequest, InputValidationError, "Photo must be sent as multipart/form-data")
		return
	}
	defer r.MultipartForm.RemoveAll()

	file, header, err := r.FormFile(photoFormField)
	if err != nil {
		a.writeFlowError(w, r, flow.NewInvalidPhotoError("Please select an image file"))
		return
	}
	defer file.Close()

	h, err = a.flow.UploadPhoto(ctx, h, flow.Photo{
		Filename:    header.Filename,
		ContentType: header.Header.Get("Content-Type"),
		Size:        header.Size,
		Body:        file,
	})
	if err != nil {
		a.writeFlowError(w, r, err)
		return
	}
	a.registrationsChanged()

	if err := a.handoffs.write(w, h); err != nil {
		logger.ErrorContext(ctx, "failed to write hand-off cookie", slog.String("error", err.Error()))
		writeError(w, http.StatusInternalServerError, InternalError, "Photo saved but the session could not be updated")
		return
	}

	writeJSON(w, http.StatusOK, flowState(flow.STEP_SUCCESS, h))
}

func (a *API) postPhotoSkip(w http.ResponseWriter, r *http.Request) {
	h, err := a.flow.SkipPhoto(r.Context(), a.handoffs.read(r))
	if err != nil {
		a.writeFlowError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, flowState(flow.STEP_SUCCESS, h))
}

func (a *API) getSummary(w http.ResponseWriter, r *http.Request) {
	summary := flow.Summarize(a.handoffs.read(r), a.catalog.Catalog())

	writeJSON(w, http.StatusOK, summaryToApiSummary(summary))
}

func (a *API) getTicket(w http.ResponseWriter, r *http.Request) {
	h := a.handoffs.read(r)

	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.Header().Set("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{
		"filename": flow.TicketFilename(h),
	}))
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(flow.Ticket(h, a.catalog.Catalog())))
}
