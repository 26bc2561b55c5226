package proxy

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/park285/transfer-gateway/internal/httperror"
	"github.com/park285/transfer-gateway/internal/upstream"
)

// multipartOverhead: 파일 외 폼 필드와 경계 문자열 여유분
const multipartOverhead = 1 << 20

var quoteEscaper = strings.NewReplacer("\\", "\\\\", `"`, "\\\"")

// UploadMedia: POST /api/admin/media (multipart, file 필수) → POST /media
// 파일 이름, Content-Type, 추가 폼 필드를 유지한 채 다시 인코딩한다.
func (h *Handler) UploadMedia(c *gin.Context) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.mediaMax+multipartOverhead)
	if err := c.Request.ParseMultipartForm(32 << 20); err != nil {
		var tooLarge *http.MaxBytesError
		switch {
		case errors.As(err, &tooLarge):
			httperror.Write(c, nil, h.mediaTooLarge())
		case errors.Is(err, http.ErrNotMultipart), errors.Is(err, http.ErrMissingBoundary):
			httperror.Write(c, nil, httperror.NewInvalidInput("Request must be multipart/form-data"))
		default:
			httperror.Write(c, nil, httperror.NewInvalidInput("Invalid multipart form"))
		}
		return
	}
	defer func() { _ = c.Request.MultipartForm.RemoveAll() }()

	file, header, err := c.Request.FormFile("file")
	if err != nil {
		httperror.Write(c, nil, httperror.NewMissingField("file"))
		return
	}
	defer func() { _ = file.Close() }()
	if header.Size > h.mediaMax {
		httperror.Write(c, nil, h.mediaTooLarge())
		return
	}

	body, contentType, err := encodeMedia(file, header, c.Request.MultipartForm.Value)
	if err != nil {
		httperror.Write(c, h.logger, err)
		return
	}

	fwd := forwardHeader(c.Request)
	fwd.Set("Content-Type", contentType)
	h.forward(c, upstream.Request{Method: http.MethodPost, Path: "/media", Header: fwd, Body: body})
}

func (h *Handler) mediaTooLarge() *httperror.Error {
	return httperror.NewInvalidInput(fmt.Sprintf("File exceeds maximum size of %d bytes", h.mediaMax))
}

func encodeMedia(file multipart.File, header *multipart.FileHeader, fields map[string][]string) (*bytes.Buffer, string, error) {
	buf := &bytes.Buffer{}
	w := multipart.NewWriter(buf)

	for name, values := range fields {
		for _, v := range values {
			if err := w.WriteField(name, v); err != nil {
				return nil, "", fmt.Errorf("write form field %s: %w", name, err)
			}
		}
	}

	contentType := header.Header.Get("Content-Type")
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	partHeader := make(textproto.MIMEHeader)
	partHeader.Set("Content-Disposition",
		fmt.Sprintf(`form-data; name="file"; filename="%s"`, quoteEscaper.Replace(header.Filename)))
	partHeader.Set("Content-Type", contentType)

	part, err := w.CreatePart(partHeader)
	if err != nil {
		return nil, "", fmt.Errorf("create file part: %w", err)
	}
	if _, err := io.Copy(part, file); err != nil {
		return nil, "", fmt.Errorf("copy file part: %w", err)
	}
	if err := w.Close(); err != nil {
		return nil, "", fmt.Errorf("close multipart writer: %w", err)
	}
	return buf, w.FormDataContentType(), nil
}
