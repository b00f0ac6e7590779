package handler

import (
	"errors"
	"mime/multipart"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/mmeshcher/pickers-market/internal/service"
)

const maxUploadSize = 64 << 20

// ListPickers возвращает страницу активных пикеров.
func (h *Handler) ListPickers(w http.ResponseWriter, r *http.Request) {
	list, err := h.service.ListPickers(r.Context(), r.URL.Query().Get("keyword"), pageFromQuery(r))
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, list)
}

// GetPicker возвращает активный пикер.
func (h *Handler) GetPicker(w http.ResponseWriter, r *http.Request) {
	id, ok := pathUUID(w, chi.URLParam(r, "pickerID"), "picker id")
	if !ok {
		return
	}

	p, err := h.service.GetPicker(r.Context(), id)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, p)
}

// UploadPicker принимает multipart-форму нового пикера от разработчика.
func (h *Handler) UploadPicker(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUser(w, r)
	if !ok {
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxUploadSize)
	if err := r.ParseMultipartForm(maxUploadSize); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeJSON(w, http.StatusRequestEntityTooLarge, errorResponse{Error: "upload too large"})
			return
		}
		badRequest(w, "invalid multipart data")
		return
	}
	defer r.MultipartForm.RemoveAll()

	in := service.PickerUpload{
		Alias:       r.FormValue("alias"),
		Description: r.FormValue("description"),
		Version:     strings.TrimSpace(r.FormValue("version")),
	}

	if raw := strings.TrimSpace(r.FormValue("price")); raw != "" {
		price, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			badRequest(w, "invalid price format")
			return
		}
		in.Price = price
	}

	file, err := formFile(r, "file")
	if err != nil {
		badRequest(w, "invalid file data")
		return
	}
	if file != nil {
		defer file.close()
		in.File = &file.upload
	}

	image, err := formFile(r, "image")
	if err != nil {
		badRequest(w, "invalid image data")
		return
	}
	if image != nil {
		defer image.close()
		in.Image = &image.upload
	}

	p, err := h.service.UploadPicker(r.Context(), userID, in)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	h.logger.Debug("picker upload accepted", zap.String("picker_id", p.ID.String()))
	writeJSON(w, http.StatusCreated, p)
}

type formUpload struct {
	upload service.Upload
	file   multipart.File
}

func (f *formUpload) close() { f.file.Close() }

// formFile возвращает файл поля name или nil, если поле не передано.
func formFile(r *http.Request, name string) (*formUpload, error) {
	f, hdr, err := r.FormFile(name)
	if err != nil {
		if errors.Is(err, http.ErrMissingFile) {
			return nil, nil
		}
		return nil, err
	}
	return &formUpload{
		upload: service.Upload{Name: hdr.Filename, Reader: f},
		file:   f,
	}, nil
}

// DeactivatePicker снимает пикер текущего разработчика с продажи.
func (h *Handler) DeactivatePicker(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUser(w, r)
	if !ok {
		return
	}
	id, ok := pathUUID(w, chi.URLParam(r, "pickerID"), "picker id")
	if !ok {
		return
	}

	if err := h.service.DeactivatePicker(r.Context(), userID, id); err != nil {
		h.writeError(w, r, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
