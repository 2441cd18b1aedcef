package types

// ImageGenerationRequest represents an OpenAI-compatible image generation
// request (image_generation mode).
type ImageGenerationRequest struct {
	Model          string `json:"model"`
	Prompt         string `json:"prompt"`
	N              int    `json:"n,omitempty"`
	Size           string `json:"size,omitempty"`
	Quality        string `json:"quality,omitempty"`
	Style          string `json:"style,omitempty"`
	ResponseFormat string `json:"response_format,omitempty"` // url or b64_json
	User           string `json:"user,omitempty"`
}

// ImageGenerationResponse represents an OpenAI-compatible image generation
// response.
type ImageGenerationResponse struct {
	Created int64        `json:"created"`
	Data    []ImageAsset `json:"data"`
}

// ImageAsset is one generated image, either a URL or inline base64 data.
type ImageAsset struct {
	URL           string `json:"url,omitempty"`
	B64JSON       string `json:"b64_json,omitempty"`
	RevisedPrompt string `json:"revised_prompt,omitempty"`
}

// RerankRequest represents a Cohere-style rerank request: score a document
// set against a query.
type RerankRequest struct {
	Model           string   `json:"model"`
	Query           string   `json:"query"`
	Documents       []string `json:"documents"`
	TopN            int      `json:"top_n,omitempty"`
	ReturnDocuments bool     `json:"return_documents,omitempty"`
}

// RerankResponse represents a rerank response: documents ordered by
// relevance with their original index preserved.
type RerankResponse struct {
	Model   string         `json:"model"`
	Results []RerankResult `json:"results"`
}

// RerankResult is one scored document.
type RerankResult struct {
	Index          int     `json:"index"`
	RelevanceScore float64 `json:"relevance_score"`
	Document       string  `json:"document,omitempty"`
}
