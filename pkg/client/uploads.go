package client

import (
	"context"
	"errors"

	"github.com/tidechat/tidechat-go/pkg/transport"
)

// Upload is the result of a file upload.
type Upload struct {
	// AssetURL is where the uploaded file is served from.
	AssetURL string `json:"asset_url"`

	// FileSize is the stored size in bytes.
	FileSize int64 `json:"file_size,omitempty"`
}

// UploadFile uploads a file for attaching to messages. contentType may
// be empty; the backend then sniffs it.
func (c *Client) UploadFile(ctx context.Context, fileName, contentType string, data []byte) (*Upload, error) {
	if fileName == "" {
		return nil, errors.New("file name is required")
	}
	if len(data) == 0 {
		return nil, errors.New("file data is empty")
	}

	req := &transport.Request{
		Method: transport.MethodPost,
		Path:   "/v1/uploads",
		Body: transport.MultipartBody{
			Parts: []transport.Part{
				{FieldName: "file", FileName: fileName, ContentType: contentType, Data: data},
			},
		},
	}
	var out Upload
	if err := c.do(ctx, req, true, &out); err != nil {
		return nil, err
	}
	return &out, nil
}
