package rag

import (
	"testing"

	"github.com/qdrant/go-client/qdrant"
)

// TestCollectionVectorSize covers the server-side identity check performed
// when an existing collection is first seen by this process: the configured
// dimensionality must be readable from collection info so a restart cannot
// silently accept mismatched embeddings.
func TestCollectionVectorSize(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		info     *qdrant.CollectionInfo
		wantSize uint64
		wantOK   bool
	}{
		{
			name: "single vector config",
			info: &qdrant.CollectionInfo{
				Config: &qdrant.CollectionConfig{
					Params: &qdrant.CollectionParams{
						VectorsConfig: qdrant.NewVectorsConfig(&qdrant.VectorParams{
							Size:     768,
							Distance: qdrant.Distance_Cosine,
						}),
					},
				},
			},
			wantSize: 768,
			wantOK:   true,
		},
		{
			name: "named vectors config",
			info: &qdrant.CollectionInfo{
				Config: &qdrant.CollectionConfig{
					Params: &qdrant.CollectionParams{
						VectorsConfig: qdrant.NewVectorsConfigMap(map[string]*qdrant.VectorParams{
							"text": {Size: 768, Distance: qdrant.Distance_Cosine},
						}),
					},
				},
			},
			wantOK: false,
		},
		{
			name:   "missing config",
			info:   &qdrant.CollectionInfo{},
			wantOK: false,
		},
		{
			name:   "nil info",
			info:   nil,
			wantOK: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			size, ok := collectionVectorSize(tt.info)
			if ok != tt.wantOK {
				t.Fatalf("collectionVectorSize ok = %v, want %v", ok, tt.wantOK)
			}
			if ok && size != tt.wantSize {
				t.Errorf("collectionVectorSize = %d, want %d", size, tt.wantSize)
			}
		})
	}
}
