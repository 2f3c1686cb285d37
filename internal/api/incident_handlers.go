package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/miradorstack/opsboard/internal/incidents"
)

func (h *handlers) listIncidents(c *gin.Context) {
	q, err := incidents.DecodeQuery(c.Request.URL.Query(), h.cfg.PageSize)
	if err != nil {
		badRequest(c, err)
		return
	}
	page, err := h.cfg.Incidents.List(c.Request.Context(), q)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, incidents.ListResponseDTO{
		Incidents: incidents.ToDTOList(page.Items),
		Total:     page.Total,
		Page:      page.Page,
		PageSize:  page.PageSize,
	})
}

func (h *handlers) getIncident(c *gin.Context) {
	inc, err := h.cfg.Incidents.Get(c.Request.Context(), c.Param("id"))
	h.writeIncident(c, http.StatusOK, inc, err)
}

func (h *handlers) createIncident(c *gin.Context) {
	var req incidents.CreateDTO
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	inc, err := h.cfg.Incidents.Create(c.Request.Context(), incidents.FromCreateDTO(req))
	h.writeIncident(c, http.StatusCreated, inc, err)
}

func (h *handlers) updateIncident(c *gin.Context) {
	var req incidents.UpdateDTO
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	inc, err := h.cfg.Incidents.Update(c.Request.Context(), c.Param("id"), incidents.FromUpdateDTO(req))
	h.writeIncident(c, http.StatusOK, inc, err)
}

func (h *handlers) deleteIncident(c *gin.Context) {
	if err := h.cfg.Incidents.Delete(c.Request.Context(), c.Param("id")); err != nil {
		writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *handlers) changeIncidentStatus(c *gin.Context) {
	var req incidents.StatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	inc, err := h.cfg.Incidents.ChangeStatus(c.Request.Context(), c.Param("id"), incidents.Status(req.Status))
	h.writeIncident(c, http.StatusOK, inc, err)
}

func (h *handlers) assignIncident(c *gin.Context) {
	var req incidents.AssignRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	inc, err := h.cfg.Incidents.Assign(c.Request.Context(), c.Param("id"), req.UserID)
	h.writeIncident(c, http.StatusOK, inc, err)
}

func (h *handlers) commentIncident(c *gin.Context) {
	var req incidents.CommentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	inc, err := h.cfg.Incidents.AddComment(c.Request.Context(), c.Param("id"), req.Message, req.Actor)
	h.writeIncident(c, http.StatusCreated, inc, err)
}

func (h *handlers) writeIncident(c *gin.Context, status int, inc incidents.Incident, err error) {
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(status, incidents.ToDTO(inc))
}
