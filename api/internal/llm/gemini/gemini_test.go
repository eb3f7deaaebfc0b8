package gemini

import (
	"context"
	"testing"

	"github.com/google/generative-ai-go/genai"
	"github.com/stretchr/testify/assert"
)

func TestGenerate_MissingKey(t *testing.T) {
	_, err := New("  ", "gemini-2.5-flash").Generate(context.Background(), "s", "p")
	assert.EqualError(t, err, "GEMINI_API_KEY is empty")
}

func TestNameAndModel(t *testing.T) {
	e := New("k", " gemini-2.5-flash ")
	assert.Equal(t, "gemini", e.Name())
	assert.Equal(t, "gemini-2.5-flash", e.GetModel())
}

func TestFirstText(t *testing.T) {
	tests := []struct {
		name string
		resp *genai.GenerateContentResponse
		want string
	}{
		{name: "nil", resp: nil, want: ""},
		{name: "no candidates", resp: &genai.GenerateContentResponse{}, want: ""},
		{
			name: "skips empty content",
			resp: &genai.GenerateContentResponse{Candidates: []*genai.Candidate{
				{Content: nil},
				{Content: &genai.Content{Parts: []genai.Part{genai.Text("  "), genai.Text(`{"ok":true}`)}}},
			}},
			want: `{"ok":true}`,
		},
		{
			name: "ignores blobs",
			resp: &genai.GenerateContentResponse{Candidates: []*genai.Candidate{
				{Content: &genai.Content{Parts: []genai.Part{genai.Blob{MIMEType: "image/png"}, genai.Text("x")}}},
			}},
			want: "x",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, firstText(tt.resp))
		})
	}
}
