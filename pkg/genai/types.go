package genai

// Content represents a multimodal conversation turn sent to the model.
type Content struct {
	Role  string `json:"role"`
	Parts []Part `json:"parts"`
}

// Part is a single piece of content: text or inline binary data.
// Exactly one field is set.
type Part struct {
	Text       string `json:"text,omitempty"`
	InlineData *Blob  `json:"inlineData,omitempty"`
}

// Blob is base64-encoded binary data with its mime type.
type Blob struct {
	MimeType string `json:"mimeType"`
	Data     string `json:"data"`
}

// Chunk is an incremental update during a streamed response.
// Err, when non-nil, is the terminal event of the stream.
type Chunk struct {
	Text string
	Err  error
}

// Operation is a server-issued handle to an in-progress long-running job.
type Operation struct {
	Name     string
	Done     bool
	VideoURI string
	Error    string
}
