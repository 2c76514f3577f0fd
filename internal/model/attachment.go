package model

// Document metadata referenced by Document-typed chat messages.
type Document struct {
	DocumentID   string `json:"document_id"`
	DocumentName string `json:"document_name"`
	DocumentLink string `json:"document_link"`
}

// Image metadata referenced by Image-typed chat messages and profile pictures.
type Image struct {
	ImageID   string `json:"image_id"`
	ImageName string `json:"image_name"`
	ImageLink string `json:"image_link"`
}
