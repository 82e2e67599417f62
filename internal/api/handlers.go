package api

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/koustreak/blindsight/internal/errs"
	"github.com/koustreak/blindsight/internal/result"
	"github.com/koustreak/blindsight/internal/store"
)

// TableView is the body of the table route.
type TableView struct {
	Table    string       `json:"table"`
	Columns  []string     `json:"columns"`
	RowCount int          `json:"row_count"`
	Rows     []result.Row `json:"rows"`
}

func (s *Server) health(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) listScans(w http.ResponseWriter, r *http.Request) {
	entries, err := s.loader.List(r.Context())
	if err != nil {
		s.writeError(w, err)
		return
	}
	if entries == nil {
		entries = []store.Entry{}
	}
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			s.writeError(w, errs.Newf(errs.ErrKindInvalidInput, "invalid limit %q", raw))
			return
		}
		if n < len(entries) {
			entries = entries[:n]
		}
	}
	writeJSON(w, http.StatusOK, entries)
}

func (s *Server) getScan(w http.ResponseWriter, r *http.Request) {
	format, err := result.ParseFormat(r.URL.Query().Get("format"))
	if err != nil {
		s.writeError(w, err)
		return
	}
	doc, err := s.loader.Load(r.Context(), chi.URLParam(r, "key"))
	if err != nil {
		s.writeError(w, err)
		return
	}

	body, err := result.Marshal(format, doc)
	if err != nil {
		s.writeError(w, err)
		return
	}
	w.Header().Set("Content-Type", format.ContentType())
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(body)
}

func (s *Server) getTable(w http.ResponseWriter, r *http.Request) {
	doc, err := s.loader.Load(r.Context(), chi.URLParam(r, "key"))
	if err != nil {
		s.writeError(w, err)
		return
	}
	table := chi.URLParam(r, "table")
	cols, ok := doc.Columns[table]
	if !ok {
		found := false
		for _, t := range doc.Tables {
			if t == table {
				found = true
				break
			}
		}
		if !found {
			s.writeError(w, errs.Newf(errs.ErrKindNotFound, "table %q not in result", table))
			return
		}
	}

	rows := doc.Data[table]
	if rows == nil {
		rows = []result.Row{}
	}
	writeJSON(w, http.StatusOK, TableView{
		Table:    table,
		Columns:  cols,
		RowCount: doc.RowCounts[table],
		Rows:     rows,
	})
}

func (s *Server) getURL(w http.ResponseWriter, r *http.Request) {
	if s.presigner == nil {
		s.writeError(w, errs.New(errs.ErrKindNotFound, "results are not kept in an object store"))
		return
	}
	u, err := s.presigner.URL(r.Context(), chi.URLParam(r, "key"), s.urlTTL)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"url": u})
}

// --- responses ---

type errorBody struct {
	Error string `json:"error"`
	Kind  string `json:"kind"`
}

func (s *Server) writeError(w http.ResponseWriter, err error) {
	kind := errs.KindOf(err)
	status := statusFor(kind)
	if status >= http.StatusInternalServerError {
		s.log.ErrorWith("request failed", err, nil)
	}
	writeJSON(w, status, errorBody{Error: err.Error(), Kind: kind.String()})
}

func statusFor(kind errs.ErrKind) int {
	switch kind {
	case errs.ErrKindNotFound:
		return http.StatusNotFound
	case errs.ErrKindInvalidInput:
		return http.StatusBadRequest
	case errs.ErrKindPermissionDenied:
		return http.StatusForbidden
	case errs.ErrKindTimeout:
		return http.StatusGatewayTimeout
	case errs.ErrKindConnectionFailed:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
