package generatemockup

import (
	"mockup-workers/internal/common/validation"
	"mockup-workers/internal/models"
)

type Input struct {
	DesignID       string `json:"designId"`
	ProductID      string `json:"productId,omitempty"`
	SKU            string `json:"sku,omitempty"`
	DesignImageURL string `json:"designImageUrl"`
	Mode           string `json:"mode,omitempty"`
}

// Request maps the job input onto the pipeline request; productId wins over sku.
func (i *Input) Request() models.MockupRequest {
	productID := i.ProductID
	if productID == "" {
		productID = i.SKU
	}
	return models.MockupRequest{
		DesignID:       i.DesignID,
		ProductID:      productID,
		DesignImageURL: i.DesignImageURL,
		Mode:           models.Mode(i.Mode),
	}
}

type Output struct {
	Success           bool                     `json:"success" yaml:"success"`
	MockupURL         string                   `json:"mockupUrl" yaml:"mockupUrl"`
	Filename          string                   `json:"filename,omitempty" yaml:"filename,omitempty"`
	ProcessingDetails models.ProcessingDetails `json:"processingDetails" yaml:"processingDetails"`
}

const inputSchemaJSON = `{
  "type": "object",
  "required": ["designId", "designImageUrl"],
  "properties": {
    "designId":       {"type": "string", "minLength": 1},
    "productId":      {"type": "string", "minLength": 1},
    "sku":            {"type": "string", "minLength": 1},
    "designImageUrl": {"type": "string", "pattern": "^https?://"},
    "mode":           {"type": "string"}
  },
  "anyOf": [
    {"required": ["productId"]},
    {"required": ["sku"]}
  ]
}`

var inputSchema = validation.MustCompileSchema(inputSchemaJSON)
