package books

import "mime/multipart"

type ListBooksQuery struct {
	Limit    int    `query:"limit" json:"limit,omitempty" default:"20" validate:"min=1,max=100"`
	Offset   int    `query:"offset" json:"offset,omitempty" validate:"min=0"`
	FileType string `query:"file_type" json:"file_type,omitempty" validate:"filetype"`
}

// UploadPayload is the multipart upload form. The container goes in the
// "file" field.
type UploadPayload struct {
	FormFiles map[string]*multipart.FileHeader `json:"-"`
}
