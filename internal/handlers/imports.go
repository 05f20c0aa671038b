package handlers

import (
	"crypto/sha256"
	"encoding/hex"
	"io"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/fleetops-platform/api/internal/audit"
	"github.com/fleetops-platform/api/internal/httpx"
	"github.com/fleetops-platform/api/internal/importer"
)

type importKind string

const (
	importKindTrips    importKind = "trip"
	importKindServices importKind = "service"
)

// ImportResponse is the single user-facing summary of an import run.
// Sheet- and row-level issues are absorbed into the message counts; only
// fatal input errors surface as success=false.
type ImportResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

func (s *Server) PostImportsTrips(w http.ResponseWriter, r *http.Request) {
	s.handleImport(w, r, importKindTrips)
}

func (s *Server) PostImportsServices(w http.ResponseWriter, r *http.Request) {
	s.handleImport(w, r, importKindServices)
}

func (s *Server) handleImport(w http.ResponseWriter, r *http.Request, kind importKind) {
	data, filename, appErr := parseWorkbookUpload(r, s.Config.ImportMaxFileBytes)
	if appErr != nil {
		httpx.WriteError(w, r, appErr.status, appErr.code, appErr.message, nil)
		return
	}

	digest := sha256.Sum256(data)
	fileSHA256 := hex.EncodeToString(digest[:])
	requestID := httpx.RequestIDFromContext(r.Context())
	_ = s.Audit.Log(r.Context(), audit.Entry{
		Action:     "import." + string(kind) + "s_started",
		EntityType: "import",
		RequestID:  requestID,
		Metadata: map[string]any{
			"filename":   filename,
			"fileSha256": fileSHA256,
		},
	})

	var summary importer.Summary
	var err error
	if kind == importKindTrips {
		summary, err = s.Importer.ImportTrips(r.Context(), data)
	} else {
		summary, err = s.Importer.ImportServices(r.Context(), data)
	}
	if err != nil {
		s.Logger.Error("import failed", "kind", kind, "filename", filename, "error", err)
		httpx.WriteJSON(w, http.StatusBadRequest, ImportResponse{
			Success: false,
			Message: "Import failed: " + err.Error(),
		})
		return
	}

	_ = s.Audit.Log(r.Context(), audit.Entry{
		Action:     "import." + string(kind) + "s_completed",
		EntityType: "import",
		RequestID:  requestID,
		Metadata: map[string]any{
			"filename":   filename,
			"fileSha256": fileSHA256,
			"imported":   summary.RecordsImported,
			"duplicates": summary.DuplicatesSkipped,
			"sheets":     summary.SheetsProcessed,
		},
	})

	httpx.WriteJSON(w, http.StatusOK, ImportResponse{
		Success: true,
		Message: summary.Message(string(kind)),
	})
}

type uploadError struct {
	status  int
	code    string
	message string
}

func parseWorkbookUpload(r *http.Request, maxBytes int64) ([]byte, string, *uploadError) {
	if !strings.HasPrefix(strings.ToLower(r.Header.Get("Content-Type")), "multipart/form-data") {
		return nil, "", &uploadError{http.StatusBadRequest, "invalid_content_type", "Content-Type must be multipart/form-data"}
	}
	if err := r.ParseMultipartForm(32 << 20); err != nil {
		return nil, "", &uploadError{http.StatusBadRequest, "invalid_multipart", "Failed to parse multipart form"}
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		return nil, "", &uploadError{http.StatusBadRequest, "missing_file", "file is required"}
	}
	defer file.Close()

	if ext := strings.ToLower(filepath.Ext(header.Filename)); ext != ".xlsx" {
		return nil, "", &uploadError{http.StatusBadRequest, "invalid_file_type", "Only .xlsx uploads are supported"}
	}
	if maxBytes > 0 && header.Size > maxBytes {
		return nil, "", &uploadError{http.StatusRequestEntityTooLarge, "file_too_large", "Uploaded workbook exceeds the size limit"}
	}

	data, err := io.ReadAll(file)
	if err != nil {
		return nil, "", &uploadError{http.StatusBadRequest, "invalid_file", "Failed to read uploaded file"}
	}
	if len(data) == 0 {
		return nil, "", &uploadError{http.StatusBadRequest, "empty_file", "Uploaded workbook is empty"}
	}
	return data, header.Filename, nil
}
