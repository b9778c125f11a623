package model

// ReceiptItem is a single purchased line item on a receipt.
type ReceiptItem struct {
	Name     string  `json:"name"`
	Quantity int     `json:"quantity"`
	Price    float64 `json:"price"`
}

// ReceiptData is the parsed content of an uploaded receipt. Extraction
// happens upstream (OCR service); the pipeline only carries it through
// to the marketplace and minter.
type ReceiptData struct {
	Merchant string        `json:"merchant,omitempty"`
	Date     string        `json:"date,omitempty"`
	Category string        `json:"category,omitempty"`
	Subtotal float64       `json:"subtotal,omitempty"`
	Tax      float64       `json:"tax,omitempty"`
	Total    float64       `json:"total"`
	Items    []ReceiptItem `json:"items,omitempty"`
}
