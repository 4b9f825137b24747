package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"

	"github.com/charlesng35/catalog/internal/services"
	appErrors "github.com/charlesng35/catalog/pkg/errors"
)

// MaxUploadSize bounds every uploaded file.
const MaxUploadSize int64 = 2 << 20

// fileField declares an accepted multipart file field.
type fileField struct {
	Name     string
	MaxCount int
	// TooLarge overrides the default size violation message.
	TooLarge string
}

var (
	categoryFileFields = []fileField{
		{Name: "banner", MaxCount: 1, TooLarge: "Banner size should not exceed 2MB"},
		{Name: "icon", MaxCount: 1, TooLarge: "Icon size should not exceed 2MB"},
	}
	productFileFields = []fileField{
		{Name: "cover", MaxCount: services.MaxCoverImages},
		{Name: "gallery", MaxCount: services.MaxGalleryImages},
		{Name: "smartIcons", MaxCount: services.MaxSmartIcons},
	}
)

// formOverhead is the allowance for non-file parts in a multipart body.
const formOverhead int64 = 1 << 20

// readUploads parses a multipart body and returns the files of each declared field.
// Requests that are not multipart yield no files. Violations are returned as
// AppErrors ready to be rendered.
func readUploads(c *gin.Context, fields []fileField) (map[string][]services.Upload, error) {
	uploads := make(map[string][]services.Upload)
	if c.ContentType() != binding.MIMEMultipartPOSTForm {
		return uploads, nil
	}

	limit := formOverhead
	for _, f := range fields {
		limit += int64(f.MaxCount) * MaxUploadSize
	}
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, limit)

	form, err := c.MultipartForm()
	if err != nil {
		var tooBig *http.MaxBytesError
		if errors.As(err, &tooBig) {
			return nil, appErrors.ErrPayloadTooLarge.WithInternal(err)
		}
		return nil, appErrors.NewBadRequest("invalid multipart payload").WithInternal(err)
	}

	declared := make(map[string]fileField, len(fields))
	for _, f := range fields {
		declared[f.Name] = f
	}
	for name, headers := range form.File {
		field, ok := declared[name]
		if !ok || len(headers) > field.MaxCount {
			return nil, appErrors.NewBadRequest(fmt.Sprintf("Too many files for field %q", name))
		}
		for _, header := range headers {
			if header.Size > MaxUploadSize {
				return nil, appErrors.ErrPayloadTooLarge.WithMessage(tooLargeMessage(field))
			}
			upload, err := readUpload(header)
			if err != nil {
				if errors.Is(err, errFileTooLarge) {
					return nil, appErrors.ErrPayloadTooLarge.WithMessage(tooLargeMessage(field))
				}
				return nil, appErrors.NewBadRequest("unable to read uploaded file").WithInternal(err)
			}
			uploads[name] = append(uploads[name], upload)
		}
	}
	return uploads, nil
}

var errFileTooLarge = errors.New("file exceeds upload limit")

func readUpload(header *multipart.FileHeader) (services.Upload, error) {
	file, err := header.Open()
	if err != nil {
		return services.Upload{}, err
	}
	defer file.Close()

	data, err := io.ReadAll(io.LimitReader(file, MaxUploadSize+1))
	if err != nil {
		return services.Upload{}, err
	}
	if int64(len(data)) > MaxUploadSize {
		return services.Upload{}, errFileTooLarge
	}
	return services.Upload{
		Filename:    header.Filename,
		ContentType: header.Header.Get("Content-Type"),
		Data:        data,
	}, nil
}

func tooLargeMessage(field fileField) string {
	if field.TooLarge != "" {
		return field.TooLarge
	}
	return fmt.Sprintf("File %q is too large. Max 2MB allowed", field.Name)
}

// firstUpload returns the single file of a one-file field, or nil.
func firstUpload(uploads map[string][]services.Upload, name string) *services.Upload {
	files := uploads[name]
	if len(files) == 0 {
		return nil
	}
	u := files[0]
	return &u
}

// parseList reads a list-valued form field. Each submitted value is either a JSON
// array or a comma separated string; items are trimmed and blanks dropped.
// present is false when the field was not submitted at all.
func parseList(c *gin.Context, key string) (items []string, present bool, err error) {
	values, present := c.GetPostFormArray(key)
	if !present {
		return nil, false, nil
	}

	items = make([]string, 0, len(values))
	for _, raw := range values {
		raw = strings.TrimSpace(raw)
		if strings.HasPrefix(raw, "[") {
			var decoded []string
			if err := json.Unmarshal([]byte(raw), &decoded); err != nil {
				return nil, true, fmt.Errorf("%s must be a JSON array of strings or a comma separated list", key)
			}
			items = appendTrimmed(items, decoded...)
			continue
		}
		items = appendTrimmed(items, strings.Split(raw, ",")...)
	}
	return items, true, nil
}

func appendTrimmed(dst []string, values ...string) []string {
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			dst = append(dst, v)
		}
	}
	return dst
}
