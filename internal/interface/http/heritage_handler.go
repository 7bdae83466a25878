package http

import (
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/yanqian/rihla/internal/domain/generation"
)

// multipart envelope allowance on top of the image itself
const multipartOverhead = 1 << 20

// RecognizeHeritage identifies a site from a description or a remote image URL.
func (h *Handler) RecognizeHeritage(c *gin.Context) {
	var req generation.HeritageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, invalidRequest("request body must be a valid heritage request", err))
		return
	}
	if req.Type == generation.HeritageUpload {
		abortWithError(c, invalidRequest("uploads must be posted to /api/v1/heritage/vision", nil))
		return
	}

	resp, err := h.generationSvc.RecognizeHeritage(c.Request.Context(), req)
	if err != nil {
		abortWithError(c, fromDomainError(err))
		return
	}

	c.JSON(http.StatusOK, resp)
}

// RecognizeHeritageUpload handles a multipart photo upload.
func (h *Handler) RecognizeHeritageUpload(c *gin.Context) {
	if h.maxImageBytes > 0 {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.maxImageBytes+multipartOverhead)
	}
	fileHeader, err := c.FormFile("image")
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			abortWithError(c, invalidRequest("image exceeds the maximum upload size", err))
			return
		}
		abortWithError(c, invalidRequest("image file is required", err))
		return
	}
	if h.maxImageBytes > 0 && fileHeader.Size > h.maxImageBytes {
		abortWithError(c, invalidRequest("image exceeds the maximum upload size", nil))
		return
	}
	file, err := fileHeader.Open()
	if err != nil {
		abortWithError(c, invalidRequest("failed to read upload", err))
		return
	}
	defer file.Close()
	data, err := io.ReadAll(file)
	if err != nil {
		abortWithError(c, NewHTTPError(http.StatusInternalServerError, "upload_failed", "failed to read image", err))
		return
	}

	req := generation.HeritageRequest{
		Type:        generation.HeritageUpload,
		CountryHint: c.PostForm("country"),
		Prompt:      c.PostForm("prompt"),
		Image: &generation.ImageUpload{
			Data:     data,
			MimeType: fileHeader.Header.Get("Content-Type"),
			Filename: fileHeader.Filename,
		},
	}
	resp, err := h.generationSvc.RecognizeHeritage(c.Request.Context(), req)
	if err != nil {
		abortWithError(c, fromDomainError(err))
		return
	}

	c.JSON(http.StatusOK, resp)
}
