package models

// PreviewRowLimit is the number of head rows shown in a preview.
const PreviewRowLimit = 10

// TablePreview is the summary shown after an upload.
type TablePreview struct {
	Rows    int        `json:"rows" msgpack:"rows"`
	Columns int        `json:"columns" msgpack:"columns"`
	SizeKB  float64    `json:"sizeKb" msgpack:"sizeKb"`
	Header  []string   `json:"header" msgpack:"header"`
	Head    [][]string `json:"head" msgpack:"head"`
}
