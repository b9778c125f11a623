package model

// NFT describes a token listed on a marketplace or minted directly.
type NFT struct {
	TokenID     string  `json:"token_id"`
	Contract    string  `json:"contract"`
	Name        string  `json:"name"`
	Image       string  `json:"image,omitempty"`
	Marketplace string  `json:"marketplace,omitempty"`
	Price       float64 `json:"price,omitempty"`
}

// PurchaseResult is the outcome of a marketplace purchase or fallback
// mint attempt. Success false with Error set is a reported failure;
// transport or contract errors surface as Go errors instead.
type PurchaseResult struct {
	Success bool   `json:"success"`
	TxHash  string `json:"tx_hash,omitempty"`
	NFT     *NFT   `json:"nft,omitempty"`
	Error   string `json:"error,omitempty"`
}
