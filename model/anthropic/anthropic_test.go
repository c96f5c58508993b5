package anthropic

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/hupe1980/critique/core"
	"github.com/hupe1980/critique/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var _ model.Model = (*Model)(nil)

func TestGenerate_SendsBase64ImageBlock(t *testing.T) {
	var body map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/messages", r.URL.Path)
		assert.Equal(t, "test-key", r.Header.Get("X-Api-Key"))
		raw, _ := io.ReadAll(r.Body)
		assert.NoError(t, json.Unmarshal(raw, &body))
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{"id":"msg_1","type":"message","role":"assistant","model":"claude",
			"content":[{"type":"text","text":"Nice light."}],
			"stop_reason":"end_turn","usage":{"input_tokens":7,"output_tokens":2}}`)
	}))
	defer srv.Close()

	m := NewModel(func(o *Options) {
		o.APIKey = "test-key"
		o.BaseURL = srv.URL
	})

	respCh, errCh := m.Generate(context.Background(), model.Request{
		Instructions: "You are an art critic.",
		Contents: []core.Content{
			core.NewUserImageContent("Critique", core.ImagePart{MimeType: "image/jpeg", Data: "/9j/"}),
		},
	})
	resp := <-respCh
	require.NoError(t, <-errCh)

	assert.Equal(t, "msg_1", resp.ID)
	assert.Equal(t, "Nice light.", resp.Content.Text())
	assert.Equal(t, "end_turn", resp.FinishReason)
	require.NotNil(t, resp.Usage)
	assert.Equal(t, 9, resp.Usage.TotalTokens)

	system := body["system"].([]any)
	require.Len(t, system, 1)
	assert.Equal(t, "You are an art critic.", system[0].(map[string]any)["text"])

	messages := body["messages"].([]any)
	require.Len(t, messages, 1)
	blocks := messages[0].(map[string]any)["content"].([]any)
	require.Len(t, blocks, 2)
	img := blocks[1].(map[string]any)
	assert.Equal(t, "image", img["type"])
	source := img["source"].(map[string]any)
	assert.Equal(t, "base64", source["type"])
	assert.Equal(t, "image/jpeg", source["media_type"])
	assert.Equal(t, "/9j/", source["data"])
}

func TestBuildMessages_MergesConsecutiveRoles(t *testing.T) {
	msgs := buildMessages([]core.Content{
		core.NewTextContent(core.RoleUser, "first"),
		core.NewTextContent(core.RoleUser, "second"),
		core.NewTextContent(core.RoleModel, "answer"),
		core.NewTextContent(core.RoleSystem, "ignored"),
	})
	require.Len(t, msgs, 2)
	assert.Len(t, msgs[0].Content, 2)
	assert.Len(t, msgs[1].Content, 1)
}

func TestBuildBlocks_DropsImagesForAssistant(t *testing.T) {
	parts := []core.Part{core.TextPart{Text: "t"}, core.ImagePart{MimeType: "image/png", Data: "AA=="}}
	assert.Len(t, buildBlocks(parts, true), 2)
	assert.Len(t, buildBlocks(parts, false), 1)
}

func TestInfo(t *testing.T) {
	m := NewModel(func(o *Options) { o.Model = "claude-test" })
	assert.Equal(t, model.Info{Name: "claude-test", Provider: "anthropic"}, m.Info())
}
