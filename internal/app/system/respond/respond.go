// internal/app/system/respond/respond.go
package respond

import (
	"fmt"
	"net/http"

	"github.com/goccy/go-json"
	"github.com/techradar/compass/internal/app/system/apperr"
	"go.uber.org/zap"
)

// Envelope is the body shape for list and detail responses.
type Envelope struct {
	Success bool   `json:"success"`
	Data    any    `json:"data,omitempty"`
	Total   *int64 `json:"total,omitempty"`
	Skip    *int64 `json:"skip,omitempty"`
	Limit   *int64 `json:"limit,omitempty"`
	Detail  string `json:"detail,omitempty"`
}

// JSON writes v with the given status.
func JSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// OK writes {success:true, data}.
func OK(w http.ResponseWriter, status int, data any) {
	JSON(w, status, Envelope{Success: true, Data: data})
}

// Page writes a list envelope with the paging window and total.
func Page(w http.ResponseWriter, data any, total, skip, limit int64) {
	JSON(w, http.StatusOK, Envelope{Success: true, Data: data, Total: &total, Skip: &skip, Limit: &limit})
}

// NoContent writes 204.
func NoContent(w http.ResponseWriter) {
	w.WriteHeader(http.StatusNoContent)
}

// Detail writes {success:false, detail}.
func Detail(w http.ResponseWriter, status int, detail string) {
	JSON(w, status, Envelope{Success: false, Detail: detail})
}

// Error maps err through apperr.Status. Client errors echo the message;
// server errors are logged and answered with a generic detail.
func Error(w http.ResponseWriter, log *zap.Logger, op string, err error) {
	status := apperr.Status(err)
	if apperr.Expected(err) {
		Detail(w, status, err.Error())
		return
	}
	if log != nil {
		log.Error(op+" failed", zap.Error(err))
	}
	Detail(w, status, http.StatusText(status))
}

// Decode reads a JSON body into dst. Unknown fields are ignored; a
// malformed body is a validation error.
func Decode(r *http.Request, dst any) error {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		return fmt.Errorf("%w: invalid JSON body: %v", apperr.ErrValidation, err)
	}
	return nil
}
