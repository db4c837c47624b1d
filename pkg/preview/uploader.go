package preview

import (
	"context"
	"errors"
	"sort"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/iota-uz/go-i18n/v2/i18n"
	"github.com/sirupsen/logrus"

	"github.com/iota-uz/bookings-admin/pkg/constants"
	"github.com/iota-uz/bookings-admin/pkg/inertia"
	"github.com/iota-uz/bookings-admin/pkg/intl"
	"github.com/iota-uz/bookings-admin/pkg/metrics"
)

const (
	UploadField = "files"
	// FormField is the multipart field every file is sent under.
	FormField = "files[]"

	uploadOK      = "ok"
	uploadInvalid = "invalid"
	uploadFailed  = "failed"
)

// UploadError is a message to show next to the file input.
type UploadError struct {
	Field   string
	Message string
	Cause   error
}

func (e *UploadError) Error() string {
	return e.Field + ": " + e.Message
}

func (e *UploadError) Unwrap() error {
	return e.Cause
}

type uploadDTO struct {
	Files []inertia.File `validate:"min=1"`
}

type Uploader struct {
	client inertia.Uploader
	log    *logrus.Entry
}

func NewUploader(client inertia.Uploader, log *logrus.Entry) *Uploader {
	if log == nil {
		log = logrus.NewEntry(logrus.StandardLogger())
	}
	return &Uploader{client: client, log: log}
}

// Upload sends the whole selection in a single multipart request. A field
// message reported by the backend is surfaced verbatim; any other failure
// becomes the generic upload message. Preview handles are left alone: the
// caller decides when the selection ends.
func (u *Uploader) Upload(ctx context.Context, path string, files []inertia.File, l *i18n.Localizer) (*inertia.Page, error) {
	if l == nil {
		l = intl.DefaultLocalizer()
	}
	if err := constants.Validate.Struct(uploadDTO{Files: files}); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			metrics.RecordUpload(uploadInvalid)
			return nil, &UploadError{Field: UploadField, Message: intl.T(l, "Upload.Required"), Cause: err}
		}
		return nil, err
	}

	page, err := u.client.Upload(ctx, path, FormField, files)
	if err == nil {
		metrics.RecordUpload(uploadOK)
		u.log.WithField("count", len(files)).Info("files uploaded")
		return page, nil
	}

	var verr *inertia.ValidationError
	if errors.As(err, &verr) {
		if msg, ok := fieldMessage(verr.Fields); ok {
			metrics.RecordUpload(uploadInvalid)
			return page, &UploadError{Field: UploadField, Message: msg, Cause: err}
		}
	}
	metrics.RecordUpload(uploadFailed)
	u.log.WithError(err).Warn("upload failed")
	return page, &UploadError{Field: UploadField, Message: intl.T(l, "Upload.Failed"), Cause: err}
}

// fieldMessage picks the message for the files field, falling back to the
// first per-file message ("files.0", "files.1", ...).
func fieldMessage(fields map[string]string) (string, bool) {
	if msg, ok := fields[UploadField]; ok && msg != "" {
		return msg, true
	}
	keys := make([]string, 0, len(fields))
	for k := range fields {
		if strings.HasPrefix(k, UploadField+".") {
			keys = append(keys, k)
		}
	}
	// files.2 before files.10; non-numeric suffixes go last.
	sort.Slice(keys, func(i, j int) bool {
		ni, erri := strconv.Atoi(strings.TrimPrefix(keys[i], UploadField+"."))
		nj, errj := strconv.Atoi(strings.TrimPrefix(keys[j], UploadField+"."))
		switch {
		case erri == nil && errj == nil && ni != nj:
			return ni < nj
		case (erri == nil) != (errj == nil):
			return erri == nil
		}
		return keys[i] < keys[j]
	})
	for _, k := range keys {
		if fields[k] != "" {
			return fields[k], true
		}
	}
	return "", false
}
