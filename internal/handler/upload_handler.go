package handler

import (
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/quocanhngo/firechat/internal/model"
	"github.com/quocanhngo/firechat/pkg/upload"
)

// multipartSlack covers the form envelope around the file part
const multipartSlack = 1 << 20

// UploadHandler serves the upload relay contract on top of a Relay,
// so clients and other instances can use this process as their relay
type UploadHandler struct {
	relay   upload.Relay
	maxSize int64
	log     zerolog.Logger
}

func NewUploadHandler(relay upload.Relay, maxSize int64, logger zerolog.Logger) *UploadHandler {
	return &UploadHandler{
		relay:   relay,
		maxSize: maxSize,
		log:     logger.With().Str("component", "upload_handler").Logger(),
	}
}

// Upload godoc
// @Summary Upload a file
// @Description Stores the file and returns its public URL. Responds with status "error" and a message on failure.
// @Tags Upload
// @Accept multipart/form-data
// @Produce json
// @Security BearerAuth
// @Param file formData file true "File to upload"
// @Success 200 {object} model.UploadResponse
// @Failure 400 {object} model.UploadResponse
// @Failure 413 {object} model.UploadResponse
// @Failure 502 {object} model.UploadResponse
// @Router /upload [post]
func (h *UploadHandler) Upload(c *gin.Context) {
	file, status, err := readFormFile(c, h.maxSize)
	if err != nil {
		c.JSON(status, model.UploadResponse{Status: upload.StatusError, Message: err.Error()})
		return
	}
	defer file.close()

	res, err := h.relay.Upload(c.Request.Context(), file.File)
	if err != nil {
		status := http.StatusBadGateway
		var uerr *upload.Error
		if errors.As(err, &uerr) && uerr.StatusCode != 0 {
			status = uerr.StatusCode
		}
		h.log.Warn().Err(err).Str("file", file.Name).Int("status", status).Msg("Upload rejected")
		c.JSON(status, model.UploadResponse{Status: upload.StatusError, Message: errorMessage(err)})
		return
	}

	h.log.Info().Str("file", res.Name).Int64("size", res.Size).Msg("📦 File stored")
	c.JSON(http.StatusOK, model.UploadResponse{
		Status:   upload.StatusSuccess,
		Message:  "File uploaded successfully",
		FileURL:  res.URL,
		FileName: res.Name,
		FileSize: res.Size,
	})
}

func errorMessage(err error) string {
	var uerr *upload.Error
	if errors.As(err, &uerr) {
		return uerr.Message
	}
	return err.Error()
}

type formUpload struct {
	upload.File
	closer io.Closer
}

func (f *formUpload) close() {
	f.closer.Close()
}

// readFormFile opens the "file" part of a multipart request
func readFormFile(c *gin.Context, maxSize int64) (*formUpload, int, error) {
	if maxSize > 0 {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxSize+multipartSlack)
	}

	file, header, err := c.Request.FormFile("file")
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return nil, http.StatusRequestEntityTooLarge, fmt.Errorf("file too large (max %d MB)", maxSize>>20)
		}
		return nil, http.StatusBadRequest, fmt.Errorf("file is required: %w", err)
	}
	if maxSize > 0 && header.Size > maxSize {
		file.Close()
		return nil, http.StatusRequestEntityTooLarge, fmt.Errorf("file too large (max %d MB)", maxSize>>20)
	}

	return &formUpload{
		File:   upload.File{Name: header.Filename, Size: header.Size, Body: file},
		closer: file,
	}, http.StatusOK, nil
}

// formFile is readFormFile for JSON endpoints; it answers the request
// itself when the file cannot be read
func formFile(c *gin.Context, maxSize int64) (*formUpload, bool) {
	file, status, err := readFormFile(c, maxSize)
	if err != nil {
		c.JSON(status, model.ErrorResponse{Error: err.Error()})
		return nil, false
	}
	return file, true
}
