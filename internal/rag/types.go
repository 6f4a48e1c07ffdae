package rag

// Stats is a read-only snapshot of the index and metadata store.
type Stats struct {
	TotalVectors    int `json:"total_vectors"`
	VectorDimension int `json:"vector_dimension"`
	DocumentCount   int `json:"documents_count"`
	ChunkCount      int `json:"chunks_count"`
}
