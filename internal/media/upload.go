package media

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/go-playground/validator/v10"
)

// ErrUnexpectedShape is returned for any upload reply that does not match
// the one accepted schema.
var ErrUnexpectedShape = errors.New("media: unexpected upload metadata shape")

// Upload is the metadata upstream returns for a stored file.
type Upload struct {
	ID       string `json:"id" validate:"required"`
	URL      string `json:"url" validate:"required,url"`
	Filename string `json:"filename" validate:"required"`
	MimeType string `json:"mime_type" validate:"required"`
	Size     int64  `json:"size" validate:"gt=0"`
}

var validate = validator.New()

// DecodeUpload strictly decodes body. Unknown fields, missing fields and
// trailing data all fail.
func DecodeUpload(body []byte) (Upload, error) {
	dec := json.NewDecoder(bytes.NewReader(body))
	dec.DisallowUnknownFields()
	var u Upload
	if err := dec.Decode(&u); err != nil {
		return Upload{}, fmt.Errorf("%w: %v", ErrUnexpectedShape, err)
	}
	if dec.More() {
		return Upload{}, fmt.Errorf("%w: trailing data", ErrUnexpectedShape)
	}
	if err := validate.Struct(u); err != nil {
		return Upload{}, fmt.Errorf("%w: %v", ErrUnexpectedShape, err)
	}
	return u, nil
}
