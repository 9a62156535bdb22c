package models

import (
	"testing"
)

func TestQueryRequest_Validate(t *testing.T) {
	tests := []struct {
		name    string
		query   *QueryRequest
		wantErr bool
		wantK   int
	}{
		{"empty query", &QueryRequest{Query: ""}, true, 0},
		{"valid query", &QueryRequest{Query: "hello", TopK: 3}, false, 3},
		{"sets default top_k", &QueryRequest{Query: "x", TopK: 0}, false, 5},
		{"caps top_k at max", &QueryRequest{Query: "x", TopK: 200}, false, 100},
		{"negative top_k passes through", &QueryRequest{Query: "x", TopK: -1}, false, -1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.query.Validate(5, 100)
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
			if !tt.wantErr && tt.query.TopK != tt.wantK {
				t.Errorf("TopK = %d, want %d", tt.query.TopK, tt.wantK)
			}
		})
	}
}
