package http

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"hunter-web/internal/site"
)

func (h *Handler) index(c *gin.Context) {
	file, err := h.site.Read(site.IndexPage)
	if err != nil {
		h.logger.WithField("path", site.IndexPage).Errorf("read index page: %v", err)
		h.notFoundPage(c)
		return
	}
	c.Data(http.StatusOK, file.ContentType, file.Data)
}

// notFound serves unmatched GETs for file-like paths from the site
// directory and answers everything else with the not-found page.
func (h *Handler) notFound(c *gin.Context) {
	method := c.Request.Method
	if (method == http.MethodGet || method == http.MethodHead) && site.HasExtension(c.Request.URL.Path) {
		file, err := h.site.Read(c.Request.URL.Path)
		if err == nil {
			c.Data(http.StatusOK, file.ContentType, file.Data)
			return
		}
		if !errors.Is(err, site.ErrNotFound) && !errors.Is(err, site.ErrOutsideRoot) {
			h.logger.WithField("path", c.Request.URL.Path).Warnf("read static file: %v", err)
		}
	}
	h.notFoundPage(c)
}

func (h *Handler) notFoundPage(c *gin.Context) {
	file, err := h.site.Read(site.NotFoundPage)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
		return
	}
	c.Data(http.StatusNotFound, file.ContentType, file.Data)
}
