// README: Selection and rider-state handlers (selection, rider, panel, proximity).
package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"ridemap/internal/session"
	"ridemap/internal/types"
)

type SelectionHandler struct {
	session *session.Session
}

func NewSelectionHandler(s *session.Session) *SelectionHandler {
	return &SelectionHandler{session: s}
}

type selectionResponse struct {
	Selected  bool     `json:"selected"`
	VehicleID types.ID `json:"vehicleId,omitempty"`
}

func (h *SelectionHandler) Get(c *gin.Context) {
	v, ok := h.session.Selection()
	writeJSON(c, http.StatusOK, selectionResponse{Selected: ok, VehicleID: v.ID})
}

func (h *SelectionHandler) Clear(c *gin.Context) {
	if err := h.session.ClearSelection(); err != nil {
		writeSessionError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, selectionResponse{})
}

func (h *SelectionHandler) Rider(c *gin.Context) {
	writeJSON(c, http.StatusOK, h.session.Rider())
}

func (h *SelectionHandler) Panel(c *gin.Context) {
	writeJSON(c, http.StatusOK, h.session.Panel())
}

func (h *SelectionHandler) Proximity(c *gin.Context) {
	writeJSON(c, http.StatusOK, map[string]string{"label": h.session.Proximity()})
}
