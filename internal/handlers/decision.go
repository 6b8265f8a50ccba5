package handlers

import (
	"net/http"

	"github.com/mbenedict/gatehouse/internal/models"
	pkghttp "github.com/mbenedict/gatehouse/pkg/http"
)

// writeRejection maps a rejecting decision onto an HTTP response. The
// message is already generic; internal detail stays in the audit log.
func writeRejection(w http.ResponseWriter, d models.Decision) {
	switch d.Reason {
	case models.ReasonLockedOut, models.ReasonRateLimited:
		pkghttp.WriteTooManyRequests(w, d.Message)
	default:
		pkghttp.WriteForbidden(w, d.Message)
	}
}
