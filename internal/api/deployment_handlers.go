package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/miradorstack/opsboard/internal/deployments"
)

func (h *handlers) listDeployments(c *gin.Context) {
	q, err := deployments.DecodeQuery(c.Request.URL.Query(), h.cfg.PageSize)
	if err != nil {
		badRequest(c, err)
		return
	}
	page, err := h.cfg.Deployments.List(c.Request.Context(), q)
	if err != nil {
		writeError(c, err)
		return
	}
	out := make([]deployments.DTO, 0, len(page.Items))
	for _, d := range page.Items {
		out = append(out, deployments.ToDTO(d))
	}
	c.JSON(http.StatusOK, deployments.ListResponseDTO{
		Deployments: out,
		Total:       page.Total,
		Page:        page.Page,
		PageSize:    page.PageSize,
	})
}

func (h *handlers) getDeployment(c *gin.Context) {
	d, err := h.cfg.Deployments.Get(c.Request.Context(), c.Param("id"))
	writeDeployment(c, d, err)
}

func (h *handlers) approveDeployment(c *gin.Context) {
	var req deployments.ActionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	d, err := h.cfg.Deployments.Approve(c.Request.Context(), c.Param("id"), req.Actor)
	writeDeployment(c, d, err)
}

func (h *handlers) startDeployment(c *gin.Context) {
	var req deployments.ActionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	d, err := h.cfg.Deployments.Start(c.Request.Context(), c.Param("id"), req.Actor)
	writeDeployment(c, d, err)
}

func (h *handlers) progressDeployment(c *gin.Context) {
	var req deployments.ProgressRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	d, err := h.cfg.Deployments.Progress(c.Request.Context(), c.Param("id"), req.Progress, req.StepIndex, req.Actor)
	writeDeployment(c, d, err)
}

func (h *handlers) finishDeployment(c *gin.Context) {
	var req deployments.FinishRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	d, err := h.cfg.Deployments.Finish(c.Request.Context(), c.Param("id"), deployments.Status(req.Status), req.Actor)
	writeDeployment(c, d, err)
}

func writeDeployment(c *gin.Context, d deployments.Deployment, err error) {
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, deployments.ToDTO(d))
}
