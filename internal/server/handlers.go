package server

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/dealmachine/internal/export"
	"github.com/sells-group/dealmachine/internal/fieldstore"
	"github.com/sells-group/dealmachine/internal/model"
	"github.com/sells-group/dealmachine/internal/ocr"
	"github.com/sells-group/dealmachine/internal/session"
	"github.com/sells-group/dealmachine/internal/store"
)

// sessionView is the JSON form of a session.
type sessionView struct {
	ID         string               `json:"id"`
	Name       string               `json:"name"`
	SourcePath string               `json:"source_path,omitempty"`
	Preview    string               `json:"preview,omitempty"`
	Fields     []session.FieldView  `json:"fields"`
	Metrics    []session.MetricView `json:"metrics"`
	Report     *session.LoadReport  `json:"report,omitempty"`
	Warning    string               `json:"warning,omitempty"`
}

func viewOf(s *session.Session) sessionView {
	return sessionView{
		ID:         s.ID(),
		Name:       s.Name(),
		SourcePath: s.SourcePath(),
		Preview:    s.Preview(),
		Fields:     s.Fields(),
		Metrics:    s.Metrics(),
	}
}

type textRequest struct {
	Name string `json:"name"`
	Text string `json:"text"`

	// Overwrite lists manual fields the extraction may replace.
	Overwrite    []model.FieldID `json:"overwrite"`
	OverwriteAll bool            `json:"overwrite_all"`
}

func (t textRequest) options() []fieldstore.LoadOption {
	var opts []fieldstore.LoadOption
	if t.OverwriteAll {
		opts = append(opts, fieldstore.OverwriteManual())
	}
	if len(t.Overwrite) > 0 {
		opts = append(opts, fieldstore.ConfirmOverwrite(t.Overwrite...))
	}
	return opts
}

func decode(r *http.Request, v any) error {
	if r.Body == nil || r.ContentLength == 0 {
		return nil
	}
	if err := json.NewDecoder(r.Body).Decode(v); err != nil && !errors.Is(err, io.EOF) {
		return eris.Wrapf(errBadRequest, "%v", err)
	}
	return nil
}

func (s *Server) createSession(w http.ResponseWriter, r *http.Request) {
	var req textRequest
	if err := decode(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, err)
		return
	}

	sess := session.New(s.deps)
	sess.SetName(req.Name)
	view := viewOf(sess)
	if strings.TrimSpace(req.Text) != "" {
		rep := sess.ApplyText(req.Text)
		Extractions.WithLabelValues("text", "ok").Inc()
		view = viewOf(sess)
		view.Report = &rep
	}
	s.add(sess)
	respondJSON(w, http.StatusCreated, view)
}

func (s *Server) getSession(w http.ResponseWriter, r *http.Request) {
	var view sessionView
	err := s.withSession(chi.URLParam(r, "id"), func(sess *session.Session) error {
		view = viewOf(sess)
		return nil
	})
	if err != nil {
		respondError(w, statusFor(err), err)
		return
	}
	respondJSON(w, http.StatusOK, view)
}

func (s *Server) closeSession(w http.ResponseWriter, r *http.Request) {
	if !s.remove(chi.URLParam(r, "id")) {
		respondError(w, http.StatusNotFound, errSessionNotFound)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) applyText(w http.ResponseWriter, r *http.Request) {
	var req textRequest
	if err := decode(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, err)
		return
	}

	var view sessionView
	err := s.withSession(chi.URLParam(r, "id"), func(sess *session.Session) error {
		if req.Name != "" {
			sess.SetName(req.Name)
		}
		rep := sess.ApplyText(req.Text, req.options()...)
		view = viewOf(sess)
		view.Report = &rep
		return nil
	})
	if err != nil {
		respondError(w, statusFor(err), err)
		return
	}
	Extractions.WithLabelValues("text", "ok").Inc()
	respondJSON(w, http.StatusOK, view)
}

// uploadDocument accepts a multipart "file" (PDF or text) and merges its
// extracted fields. When extraction is unavailable the session falls back to
// defaults and the response carries a warning.
func (s *Server) uploadDocument(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, s.maxUpload)
	if err := r.ParseMultipartForm(s.maxUpload); err != nil {
		respondError(w, http.StatusRequestEntityTooLarge, ocr.ErrFileTooLarge)
		return
	}
	file, header, err := r.FormFile("file")
	if err != nil {
		respondError(w, http.StatusBadRequest, eris.Wrap(errBadRequest, "missing file"))
		return
	}
	defer file.Close() //nolint:errcheck

	path, cleanup, err := spool(file, header.Filename)
	if err != nil {
		respondError(w, http.StatusInternalServerError, err)
		return
	}
	defer cleanup()

	req := textRequest{OverwriteAll: r.FormValue("overwrite_all") == "true"}
	if ids := r.FormValue("overwrite"); ids != "" {
		for _, id := range strings.Split(ids, ",") {
			req.Overwrite = append(req.Overwrite, model.FieldID(strings.TrimSpace(id)))
		}
	}

	var view sessionView
	err = s.withSession(chi.URLParam(r, "id"), func(sess *session.Session) error {
		rep, lerr := sess.LoadDocument(r.Context(), nil, path, req.options()...)
		if lerr != nil && !errors.Is(lerr, ocr.ErrExtractionUnavailable) {
			return lerr
		}
		sess.SetSourcePath(header.Filename)
		rep.Source = header.Filename
		view = viewOf(sess)
		view.Report = &rep
		if lerr != nil {
			view.Warning = lerr.Error()
		}
		return nil
	})
	switch {
	case err != nil:
		Extractions.WithLabelValues("document", "error").Inc()
		respondError(w, statusFor(err), err)
		return
	case view.Warning != "":
		Extractions.WithLabelValues("document", "unavailable").Inc()
	default:
		Extractions.WithLabelValues("document", "ok").Inc()
	}
	respondJSON(w, http.StatusOK, view)
}

// spool copies an upload into a fresh temp directory under its original
// base name.
func spool(src io.Reader, filename string) (string, func(), error) {
	dir, err := os.MkdirTemp("", "dealmachine-upload-")
	if err != nil {
		return "", nil, eris.Wrap(err, "server: create temp dir")
	}
	cleanup := func() { os.RemoveAll(dir) } //nolint:errcheck

	base := filepath.Base(filepath.Clean("/" + filename))
	if base == "/" || base == "." {
		base = "upload"
	}
	path := filepath.Join(dir, base)
	f, err := os.Create(path)
	if err != nil {
		cleanup()
		return "", nil, eris.Wrap(err, "server: create temp file")
	}
	if _, err := io.Copy(f, src); err != nil {
		f.Close() //nolint:errcheck
		cleanup()
		return "", nil, eris.Wrap(err, "server: spool upload")
	}
	if err := f.Close(); err != nil {
		cleanup()
		return "", nil, eris.Wrap(err, "server: spool upload")
	}
	return path, cleanup, nil
}

type fieldRequest struct {
	// Value is parsed with the field's type: "$1,200", "6.5%", "1978".
	Value string `json:"value"`
}

func (s *Server) setField(w http.ResponseWriter, r *http.Request) {
	var req fieldRequest
	if err := decode(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, err)
		return
	}
	field := model.FieldID(chi.URLParam(r, "field"))

	var view sessionView
	err := s.withSession(chi.URLParam(r, "id"), func(sess *session.Session) error {
		if err := sess.SetManual(field, req.Value); err != nil {
			return err
		}
		view = viewOf(sess)
		return nil
	})
	if err != nil {
		respondError(w, statusFor(err), err)
		return
	}
	respondJSON(w, http.StatusOK, view)
}

func (s *Server) clearField(w http.ResponseWriter, r *http.Request) {
	field := model.FieldID(chi.URLParam(r, "field"))
	var view sessionView
	err := s.withSession(chi.URLParam(r, "id"), func(sess *session.Session) error {
		if err := sess.Clear(field); err != nil {
			return err
		}
		view = viewOf(sess)
		return nil
	})
	if err != nil {
		respondError(w, statusFor(err), err)
		return
	}
	respondJSON(w, http.StatusOK, view)
}

func (s *Server) resetSession(w http.ResponseWriter, r *http.Request) {
	var view sessionView
	err := s.withSession(chi.URLParam(r, "id"), func(sess *session.Session) error {
		sess.Reset()
		view = viewOf(sess)
		return nil
	})
	if err != nil {
		respondError(w, statusFor(err), err)
		return
	}
	respondJSON(w, http.StatusOK, view)
}

func (s *Server) diffSession(w http.ResponseWriter, r *http.Request) {
	var diffs []fieldstore.Difference
	err := s.withSession(chi.URLParam(r, "id"), func(sess *session.Session) error {
		diffs = sess.Diff()
		return nil
	})
	if err != nil {
		respondError(w, statusFor(err), err)
		return
	}
	if diffs == nil {
		diffs = []fieldstore.Difference{}
	}
	respondJSON(w, http.StatusOK, map[string]any{"differences": diffs})
}

func (s *Server) exportSession(w http.ResponseWriter, r *http.Request) {
	format := export.FormatJSON
	if q := r.URL.Query().Get("format"); q != "" {
		f, err := export.ParseFormat(q)
		if err != nil || f == export.FormatXLSX {
			respondError(w, http.StatusBadRequest, eris.Wrapf(errBadRequest, "unsupported format %q", q))
			return
		}
		format = f
	}

	var doc *export.Document
	err := s.withSession(chi.URLParam(r, "id"), func(sess *session.Session) error {
		doc = export.Build(sess)
		return nil
	})
	if err != nil {
		respondError(w, statusFor(err), err)
		return
	}

	if format == export.FormatYAML {
		w.Header().Set("Content-Type", "application/yaml")
	} else {
		w.Header().Set("Content-Type", "application/json")
	}
	if err := export.Write(w, doc, format); err != nil {
		zap.L().Warn("server: write export", zap.Error(err))
	}
}

func (s *Server) saveSession(w http.ResponseWriter, r *http.Request) {
	if s.store == nil {
		respondError(w, http.StatusServiceUnavailable, eris.New("server: no record store configured"))
		return
	}
	var rec *model.PropertyRecord
	err := s.withSession(chi.URLParam(r, "id"), func(sess *session.Session) error {
		rec = sess.Record()
		return s.store.Save(r.Context(), rec)
	})
	if err != nil {
		respondError(w, statusFor(err), err)
		return
	}
	zap.L().Info("server: saved record", zap.String("id", rec.ID), zap.String("name", rec.Name))
	respondJSON(w, http.StatusOK, rec.Summary())
}

func (s *Server) listRecords(w http.ResponseWriter, r *http.Request) {
	if s.store == nil {
		respondError(w, http.StatusServiceUnavailable, eris.New("server: no record store configured"))
		return
	}
	q := r.URL.Query()
	filter := store.ListFilter{Query: q.Get("q")}
	filter.Limit, _ = strconv.Atoi(q.Get("limit"))
	filter.Offset, _ = strconv.Atoi(q.Get("offset"))

	recs, err := s.store.List(r.Context(), filter)
	if err != nil {
		respondError(w, statusFor(err), err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"records": recs})
}

func (s *Server) getRecord(w http.ResponseWriter, r *http.Request) {
	if s.store == nil {
		respondError(w, http.StatusServiceUnavailable, eris.New("server: no record store configured"))
		return
	}
	rec, err := s.store.Load(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		respondError(w, statusFor(err), err)
		return
	}
	respondJSON(w, http.StatusOK, rec)
}

// openRecord restores a saved record into a new session. The session keeps
// the record's id so saving it again updates the same record.
func (s *Server) openRecord(w http.ResponseWriter, r *http.Request) {
	if s.store == nil {
		respondError(w, http.StatusServiceUnavailable, eris.New("server: no record store configured"))
		return
	}
	rec, err := s.store.Load(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		respondError(w, statusFor(err), err)
		return
	}
	sess := session.New(s.deps)
	if err := sess.Restore(rec); err != nil {
		respondError(w, http.StatusUnprocessableEntity, err)
		return
	}
	s.add(sess)
	respondJSON(w, http.StatusCreated, viewOf(sess))
}

func (s *Server) deleteRecord(w http.ResponseWriter, r *http.Request) {
	if s.store == nil {
		respondError(w, http.StatusServiceUnavailable, eris.New("server: no record store configured"))
		return
	}
	if err := s.store.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
		respondError(w, statusFor(err), err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
