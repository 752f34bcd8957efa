package web

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/slidegate-dev/slidegate/pkg/banner"
	"github.com/slidegate-dev/slidegate/pkg/classify"
	"github.com/slidegate-dev/slidegate/pkg/convert"
	"github.com/slidegate-dev/slidegate/pkg/upload"
	"github.com/slidegate-dev/slidegate/pkg/validate"
)

// themeCookie stores the visitor's theme choice.
const themeCookie = "slidegate_theme"

// formOverhead is slack on top of the file size cap for multipart
// framing and the option field. The file itself is limited precisely
// by the validator and the spool store.
const formOverhead = 1 << 20

// parseMemory is how much of the multipart form is held in memory;
// larger files spill to temp files.
const parseMemory = 32 << 20

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	theme := s.theme.Get()
	if c, err := r.Cookie(themeCookie); err == nil && validTheme(c.Value) {
		theme = c.Value
	}
	s.renderIndex(w, theme)
}

// handleUpload accepts one document, spools it, relays it to the
// conversion backend and answers with the classified outcome. The
// gateway always answers JSON; the HTML-for-JSON substitution problem
// lives strictly on the backend side of the relay.
func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	r.Body = http.MaxBytesReader(w, r.Body, s.cfg.MaxUploadBytes()+formOverhead)
	if err := r.ParseMultipartForm(parseMemory); err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			// The stream was cut at the cap; the file's real size is
			// unknowable here, so the message only states the limit.
			s.rejectSize(w, fmt.Sprintf("upload exceeds the %d MB limit", s.cfg.MaxUploadMB))
			return
		}
		s.reject(w, http.StatusBadRequest, "could not read the upload form")
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		s.reject(w, http.StatusBadRequest, "no file provided — choose a file before submitting")
		return
	}
	defer file.Close()

	option := convert.Option(r.FormValue("annotation_option"))
	if !option.Valid() {
		s.reject(w, http.StatusBadRequest, fmt.Sprintf("unknown annotation option %q", option))
		return
	}

	info := validate.FileInfo{
		Name:        header.Filename,
		SizeBytes:   header.Size,
		ContentType: header.Header.Get("Content-Type"),
	}
	report, err := validate.Check(info, validate.Limits{
		MaxBytes:   s.cfg.MaxUploadBytes(),
		Extensions: s.cfg.Extensions,
	})
	if err != nil {
		var sizeErr *validate.SizeError
		if errors.As(err, &sizeErr) {
			s.rejectSize(w, sizeErr.Error())
			return
		}
		s.reject(w, http.StatusBadRequest, err.Error())
		return
	}
	if report.Warn {
		s.log.Info("upload near size limit",
			"file", report.Name, "size_mb", report.SizeMB, "limit_mb", report.LimitMB)
	}

	spoolID, err := s.store.Save(ctx, header.Filename, info.ContentType, header.Size, file)
	if err != nil {
		if errors.Is(err, upload.ErrTooLarge) {
			sizeErr := &validate.SizeError{SizeMB: report.SizeMB, LimitMB: float64(s.cfg.MaxUploadMB)}
			s.rejectSize(w, sizeErr.Error())
			return
		}
		s.log.Error("spooling upload failed", "error", err)
		s.reject(w, http.StatusInternalServerError, "could not store the upload")
		return
	}

	spooled, err := s.store.Claim(ctx, spoolID)
	if err != nil {
		s.log.Error("claiming spooled upload failed", "id", spoolID, "error", err)
		s.reject(w, http.StatusInternalServerError, "could not read back the upload")
		return
	}
	defer spooled.Close()

	start := time.Now()
	outcome, err := s.converter.Submit(ctx, convert.Document{
		Name:        spooled.Filename,
		ContentType: spooled.ContentType,
		Size:        spooled.Size,
		Body:        spooled.Reader,
	}, option, s.hub.NotifyProgress)
	s.metrics.convertDuration.Observe(time.Since(start).Seconds())

	if err != nil {
		if errors.Is(err, convert.ErrBusy) {
			s.metrics.uploadsTotal.WithLabelValues("busy").Inc()
			s.reject(w, http.StatusConflict, "an upload is already being processed — try again shortly")
			return
		}
		s.log.Error("submission failed", "error", err)
		s.reject(w, http.StatusInternalServerError, "submitting the upload failed")
		return
	}

	if outcome.Success {
		outcome = s.stageResult(r, outcome)
	}

	if outcome.Success {
		s.metrics.uploadsTotal.WithLabelValues("success").Inc()
		s.metrics.uploadBytes.Observe(float64(header.Size))
		s.presenter.Success(outcome.Message)
	} else {
		s.metrics.uploadsTotal.WithLabelValues("failed").Inc()
		s.presenter.Error(banner.ClassAlert, outcome.Message)
	}

	writeJSON(w, http.StatusOK, outcome)
}

// stageResult pulls the generated artifact from the backend into the
// spool and rewrites the result location to a gateway download path.
// The backend is typically not reachable from the visitor's network;
// the gateway is its public face.
func (s *Server) stageResult(r *http.Request, outcome classify.Outcome) classify.Outcome {
	if outcome.ResultLocation == "" {
		return outcome
	}

	res, err := s.converter.FetchResult(r.Context(), outcome.ResultLocation)
	if err != nil {
		s.log.Error("fetching conversion result failed",
			"location", outcome.ResultLocation, "error", err)
		return classify.Outcome{
			Success: false,
			Message: "conversion succeeded but the result could not be retrieved",
		}
	}
	defer res.Body.Close()

	id, err := s.store.Save(r.Context(), res.Filename, res.ContentType, res.Size, res.Body)
	if err != nil {
		s.log.Error("spooling conversion result failed", "error", err)
		return classify.Outcome{
			Success: false,
			Message: "conversion succeeded but the result could not be stored",
		}
	}

	outcome.ResultLocation = "/download/" + id
	return outcome
}

// handleDownload streams a staged artifact. A spool entry is handed
// over exactly once; the spool is a relay, not an archive.
func (s *Server) handleDownload(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	f, err := s.store.Claim(r.Context(), id)
	if err != nil {
		if errors.Is(err, upload.ErrNotFound) {
			writeError(w, http.StatusNotFound, "this download has expired or was already retrieved")
			return
		}
		s.log.Error("claiming download failed", "id", id, "error", err)
		writeError(w, http.StatusInternalServerError, "could not retrieve the file")
		return
	}
	defer f.Close()

	contentType := f.ContentType
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", f.Filename))
	if f.Size > 0 {
		w.Header().Set("Content-Length", strconv.FormatInt(f.Size, 10))
	}

	if _, err := io.Copy(w, f.Reader); err != nil {
		s.log.Warn("download interrupted", "id", id, "error", err)
	}
}

// handleTheme switches the page theme and persists it in a cookie.
func (s *Server) handleTheme(w http.ResponseWriter, r *http.Request) {
	theme := r.FormValue("theme")
	if theme == "" {
		// No explicit value toggles.
		if s.currentTheme(r) == "dark" {
			theme = "light"
		} else {
			theme = "dark"
		}
	}
	if !validTheme(theme) {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("unknown theme %q", theme))
		return
	}

	s.theme.Set(theme)
	http.SetCookie(w, &http.Cookie{
		Name:     themeCookie,
		Value:    theme,
		Path:     "/",
		MaxAge:   int((365 * 24 * time.Hour).Seconds()),
		SameSite: http.SameSiteLaxMode,
	})
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "theme": theme})
}

func (s *Server) currentTheme(r *http.Request) string {
	if c, err := r.Cookie(themeCookie); err == nil && validTheme(c.Value) {
		return c.Value
	}
	return s.theme.Get()
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":  "ok",
		"backend": s.cfg.BackendURL,
		"spool":   s.cfg.Spool.Backend,
	})
}

// reject answers a request error as a JSON outcome and raises the
// generic alert banner.
func (s *Server) reject(w http.ResponseWriter, status int, message string) {
	s.metrics.uploadsTotal.WithLabelValues("rejected").Inc()
	s.presenter.Error(banner.ClassAlert, message)
	writeJSON(w, status, classify.Outcome{Success: false, Message: message})
}

// rejectSize answers an oversized upload. The size banner is its own
// class so it never fights with the generic alert.
func (s *Server) rejectSize(w http.ResponseWriter, message string) {
	s.metrics.uploadsTotal.WithLabelValues("rejected").Inc()
	s.presenter.Error(banner.ClassSizeError, message)
	writeJSON(w, http.StatusRequestEntityTooLarge, classify.Outcome{
		Success: false,
		Message: message,
	})
}

func validTheme(theme string) bool {
	return theme == "light" || theme == "dark"
}

// writeError answers a non-upload request error as a JSON envelope
// without touching the upload metrics or banners.
func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, classify.Outcome{Success: false, Message: message})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
