package ragdex

// Citation points at the source of a retrieved chunk.
type Citation struct {
	DocID      string `json:"doc_id"`
	PageOrPara string `json:"page_or_para"`
}

// Turn is the outcome of one conversational turn.
type Turn struct {
	SessionID string     `json:"session_id"`
	Answer    string     `json:"answer"`
	Route     string     `json:"route"`
	Citations []Citation `json:"citations,omitempty"`
	Messages  int        `json:"messages"`
}

// QueryRequest asks for a single grounded answer outside any session.
type QueryRequest struct {
	Question string `json:"question"`
	// Technique selects the retrieval algorithm: "top_k" (default) or "mmr".
	Technique string `json:"technique,omitempty"`
	// EvalMode bypasses quality filtering and uses the evaluation fetch depth.
	EvalMode bool `json:"eval_mode,omitempty"`
}

// QueryResult is a grounded answer with its citations.
type QueryResult struct {
	Answer         string     `json:"answer"`
	Citations      []Citation `json:"citations"`
	BelowThreshold bool       `json:"below_threshold"`
}

// RetrieveRequest asks for raw scored chunks without generation.
type RetrieveRequest struct {
	Query     string `json:"query"`
	Technique string `json:"technique,omitempty"`
}

// Chunk is one retrieved chunk with its score.
type Chunk struct {
	Text       string  `json:"text"`
	DocID      string  `json:"doc_id"`
	PageOrPara string  `json:"page_or_para"`
	ChunkIndex int     `json:"chunk_index"`
	Score      float64 `json:"score"`
}

// RetrieveResult is the outcome of one retrieval call.
type RetrieveResult struct {
	Chunks         []Chunk `json:"chunks"`
	BelowThreshold bool    `json:"below_threshold"`
}

// UploadResult reports an accepted document upload.
type UploadResult struct {
	Filename string `json:"filename"`
	Chunks   int    `json:"chunks"`
}

// Health is the service health report.
type Health struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks"`
}
