package transport

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/textproto"
	"net/url"
)

// Body is a request body variant. Exactly one concrete type applies per
// request: EmptyBody, JSONBody, FormBody, or MultipartBody.
type Body interface {
	// Encode returns the content type and an encoded reader for the body.
	Encode() (contentType string, r io.Reader, err error)
}

// EmptyBody is the absent-body variant.
type EmptyBody struct{}

// Encode returns no content.
func (EmptyBody) Encode() (string, io.Reader, error) {
	return "", nil, nil
}

// JSONBody marshals a value as an application/json body.
type JSONBody struct {
	// Value is marshaled with encoding/json.
	Value any
}

// Encode marshals the value.
func (b JSONBody) Encode() (string, io.Reader, error) {
	data, err := json.Marshal(b.Value)
	if err != nil {
		return "", nil, err
	}
	return "application/json", bytes.NewReader(data), nil
}

// FormBody encodes key-value pairs as a form-urlencoded body.
type FormBody struct {
	Values map[string]string
}

// Encode url-encodes the values.
func (b FormBody) Encode() (string, io.Reader, error) {
	form := url.Values{}
	for k, v := range b.Values {
		form.Set(k, v)
	}
	return "application/x-www-form-urlencoded", bytes.NewReader([]byte(form.Encode())), nil
}

// MultipartBody encodes file and field parts as multipart/form-data.
type MultipartBody struct {
	Parts []Part
}

// Part is a single multipart section. FileName empty means a plain field.
type Part struct {
	FieldName   string
	FileName    string
	ContentType string
	Data        []byte
}

// Encode builds the multipart payload. The returned content type carries
// the generated boundary.
func (b MultipartBody) Encode() (string, io.Reader, error) {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)

	for _, p := range b.Parts {
		var (
			fw  io.Writer
			err error
		)
		switch {
		case p.FileName != "" && p.ContentType != "":
			h := make(textproto.MIMEHeader)
			h.Set("Content-Disposition", fmt.Sprintf(`form-data; name=%q; filename=%q`, p.FieldName, p.FileName))
			h.Set("Content-Type", p.ContentType)
			fw, err = w.CreatePart(h)
		case p.FileName != "":
			fw, err = w.CreateFormFile(p.FieldName, p.FileName)
		default:
			fw, err = w.CreateFormField(p.FieldName)
		}
		if err != nil {
			return "", nil, err
		}
		if _, err := fw.Write(p.Data); err != nil {
			return "", nil, err
		}
	}

	if err := w.Close(); err != nil {
		return "", nil, err
	}
	return w.FormDataContentType(), &buf, nil
}
