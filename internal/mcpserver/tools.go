package mcpserver

import (
	"context"
	"errors"
	"strings"

	"github.com/hupe1980/critique/core"
	"github.com/hupe1980/critique/datauri"
	"github.com/hupe1980/critique/internal/util"
)

type captureImageArgs struct {
	IncludeData bool `json:"include_data,omitempty" description:"Return the full data URI (can be several megabytes)."`
}

type critiqueImageArgs struct {
	Prompt   string `json:"prompt,omitempty" description:"What the critique should focus on. Optional for a new scan."`
	FollowUp bool   `json:"follow_up,omitempty" description:"Continue the current conversation instead of starting a new one."`
}

// CaptureImageTool captures the active document without calling a model.
type CaptureImageTool struct {
	capturer Capturer
}

func (t *CaptureImageTool) Name() string { return "capture_image" }
func (t *CaptureImageTool) Description() string {
	return "Capture the active image as JPEG (long edge bounded). Returns its MIME type and size; " +
		"set include_data to also return the base64 data URI."
}

func (t *CaptureImageTool) InputSchema() map[string]interface{} {
	return util.ObjectSchema(captureImageArgs{})
}

func (t *CaptureImageTool) Execute(ctx context.Context, args map[string]interface{}) (interface{}, error) {
	uri, err := t.capturer.Capture(ctx)
	if err != nil {
		return nil, err
	}

	mimeType, payload, err := datauri.Parse(uri)
	if err != nil {
		return nil, err
	}

	data, err := datauri.Decode(payload)
	if err != nil {
		return nil, err
	}

	result := map[string]interface{}{
		"success":         true,
		"mime_type":       mimeType,
		"bytes":           len(data),
		"data_uri_length": len(uri),
	}
	if getBoolArg(args, "include_data", false) {
		result["data_uri"] = uri
	}
	return result, nil
}

// CritiqueImageTool captures the active image and asks the model about it.
type CritiqueImageTool struct {
	critic Critic
}

func (t *CritiqueImageTool) Name() string { return "critique_image" }
func (t *CritiqueImageTool) Description() string {
	return "Capture the active image and return a critique. With follow_up=true the prompt continues " +
		"the current conversation using a freshly captured image; otherwise a new conversation starts."
}

func (t *CritiqueImageTool) InputSchema() map[string]interface{} {
	return util.ObjectSchema(critiqueImageArgs{})
}

func (t *CritiqueImageTool) Execute(ctx context.Context, args map[string]interface{}) (interface{}, error) {
	prompt := strings.TrimSpace(getStringArg(args, "prompt"))
	followUp := getBoolArg(args, "follow_up", false)

	var (
		reply core.Message
		err   error
	)
	if followUp {
		if prompt == "" {
			return nil, errors.New("prompt is required for a follow-up")
		}
		reply, err = t.critic.Reply(ctx, prompt)
	} else {
		reply, err = t.critic.Scan(ctx, prompt)
	}
	if err != nil {
		return nil, err
	}

	return map[string]interface{}{
		"success":         true,
		"conversation_id": t.critic.ConversationID(),
		"model":           t.critic.Model().Name,
		"critique":        reply.Display,
	}, nil
}

// NewScanTool discards the current conversation.
type NewScanTool struct {
	critic Critic
}

func (t *NewScanTool) Name() string        { return "new_scan" }
func (t *NewScanTool) Description() string { return "Discard the current critique conversation." }
func (t *NewScanTool) InputSchema() map[string]interface{} {
	return util.ObjectSchema(struct{}{})
}

func (t *NewScanTool) Execute(_ context.Context, _ map[string]interface{}) (interface{}, error) {
	t.critic.NewScan()
	return map[string]interface{}{"success": true}, nil
}
