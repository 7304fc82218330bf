package web

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"

	"github.com/a-h/templ"
	"github.com/go-chi/chi/v5"

	"github.com/JonMunkholm/shiplabel/internal/core"
	"github.com/JonMunkholm/shiplabel/internal/label"
	"github.com/JonMunkholm/shiplabel/internal/logging"
	"github.com/JonMunkholm/shiplabel/internal/web/templates"
)

const (
	// multipartMemory is the part of an upload kept in memory; the rest
	// spills to temporary files.
	multipartMemory = 8 << 20

	maxParseBody    = 64 << 10
	maxHistoryLimit = 500

	templateFileName = "usps_template.csv"
)

// batchResponse is the JSON form of a batch.
type batchResponse struct {
	core.BatchSummary
	DownloadURL string `json:"downloadUrl"`
}

// convertResponse adds the preview rows to a batch.
type convertResponse struct {
	Batch   batchResponse `json:"batch"`
	Header  []string      `json:"header"`
	Preview [][]string    `json:"preview"`
}

type parseRequest struct {
	Text   string `json:"text"`
	Handle string `json:"handle"`
}

type historyResponse struct {
	Persistent bool                `json:"persistent"`
	Batches    []core.BatchSummary `json:"batches"`
}

type healthResponse struct {
	Status  string                  `json:"status"`
	History bool                    `json:"history"`
	Batches core.BatchLimiterStatus `json:"batches"`
}

func newBatchResponse(sum core.BatchSummary) batchResponse {
	return batchResponse{BatchSummary: sum, DownloadURL: templates.DownloadURL(sum.ID)}
}

// parseIntParam parses a positive integer query parameter with a default value.
func parseIntParam(r *http.Request, name string, defaultVal int) int {
	val := r.URL.Query().Get(name)
	if val == "" {
		return defaultVal
	}
	i, err := strconv.Atoi(val)
	if err != nil || i < 1 {
		return defaultVal
	}
	return i
}

// handleIndex renders the upload page.
func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	cols := s.service.Columns()
	page := templates.UploadPage(templates.UploadPageParams{
		RemarkColumns:  cols.Remark,
		HandleColumns:  cols.Handle,
		MaxFileSize:    s.cfg.Label.MaxFileSize,
		HistoryEnabled: s.service.HistoryEnabled(),
		Recent:         s.service.RecentBatches(),
	})

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := page.Render(r.Context(), w); err != nil {
		logging.FromContext(r.Context()).Error("render upload page", "error", err)
	}
}

// handleConvert converts an uploaded remark CSV. The file is streamed into
// the service without being read into memory first.
func (s *Server) handleConvert(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, s.cfg.Label.MaxFileSize)

	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		if statusFor(err) == http.StatusRequestEntityTooLarge {
			respondError(w, r, fmt.Errorf("parse upload: %w", err), http.StatusRequestEntityTooLarge)
			return
		}
		respondError(w, r, fmt.Errorf("%w: %v", errNoFile, err), http.StatusBadRequest)
		return
	}
	defer func() { _ = r.MultipartForm.RemoveAll() }()

	file, header, err := r.FormFile("file")
	if err != nil {
		respondError(w, r, fmt.Errorf("%w: %v", errNoFile, err), http.StatusBadRequest)
		return
	}
	defer file.Close()

	ctx, cancel := context.WithTimeout(WithRequestMetadata(r.Context(), r), s.cfg.Label.Timeout)
	defer cancel()

	res, err := s.service.Convert(ctx, header.Filename, file, header.Size)
	if err != nil {
		respondError(w, r, err, statusFor(err))
		return
	}

	preview := res.Table.Head(label.PreviewRows)

	switch {
	case isHTMX(r):
		s.renderResult(w, r, templates.ConvertResult, res, preview)
	case wantsJSON(r):
		writeJSON(w, convertResponse{
			Batch:   newBatchResponse(res.BatchSummary),
			Header:  preview.Header,
			Preview: preview.Rows,
		})
	default:
		s.renderResult(w, r, templates.ResultPage, res, preview)
	}
}

func (s *Server) renderResult(w http.ResponseWriter, r *http.Request, view func(templates.ResultParams) templ.Component,
	res *core.BatchResult, preview *label.Table) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	params := templates.ResultParams{
		Batch:       res.BatchSummary,
		Preview:     preview,
		DownloadURL: templates.DownloadURL(res.ID),
	}
	if err := view(params).Render(r.Context(), w); err != nil {
		logging.FromContext(r.Context()).Error("render result", "batch_id", res.ID, "error", err)
	}
}

// handleGetBatch returns a batch summary.
func (s *Server) handleGetBatch(w http.ResponseWriter, r *http.Request) {
	res, err := s.service.LoadBatch(r.Context(), chi.URLParam(r, "batchID"))
	if err != nil {
		respondError(w, r, err, statusFor(err))
		return
	}
	writeJSON(w, newBatchResponse(res.BatchSummary))
}

// handleDownloadBatch streams the merged label table as a CSV attachment.
func (s *Server) handleDownloadBatch(w http.ResponseWriter, r *http.Request) {
	res, err := s.service.LoadBatch(r.Context(), chi.URLParam(r, "batchID"))
	if err != nil {
		respondError(w, r, err, statusFor(err))
		return
	}

	writeCSVHeaders(w, label.DefaultFileName)
	if err := res.Table.WriteCSV(w); err != nil {
		logging.WithBatch(r.Context(), res.ID, res.FileName).Error("write csv", "error", err)
	}
}

// handleTemplate returns the header-only label CSV.
func (s *Server) handleTemplate(w http.ResponseWriter, r *http.Request) {
	writeCSVHeaders(w, templateFileName)
	if err := label.Template().WriteCSV(w); err != nil {
		logging.FromContext(r.Context()).Error("write template", "error", err)
	}
}

// handleParse extracts a single remark sent as JSON.
func (s *Server) handleParse(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxParseBody)

	var req parseRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		if statusFor(err) == http.StatusRequestEntityTooLarge {
			respondError(w, r, err, http.StatusRequestEntityTooLarge)
			return
		}
		respondError(w, r, fmt.Errorf("%w: %v", errInvalidJSON, err), http.StatusBadRequest)
		return
	}

	writeJSON(w, s.service.ParseRemark(req.Text, req.Handle))
}

// handleHistory lists recent batches, from the history store when one is
// configured.
func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	limit := min(parseIntParam(r, "limit", s.cfg.History.ListLimit), maxHistoryLimit)

	batches, err := s.service.History(r.Context(), limit)
	if err != nil {
		respondError(w, r, err, statusFor(err))
		return
	}
	if batches == nil {
		batches = []core.BatchSummary{}
	}

	writeJSON(w, historyResponse{
		Persistent: s.service.HistoryEnabled(),
		Batches:    batches,
	})
}

// handleHealth reports liveness and batch capacity.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, healthResponse{
		Status:  "ok",
		History: s.service.HistoryEnabled(),
		Batches: s.service.LimiterStatus(),
	})
}

func writeCSVHeaders(w http.ResponseWriter, fileName string) {
	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, fileName))
}
