package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
)

// QwenProvider talks to the native DashScope text-generation endpoint.
type QwenProvider struct{}

type qwenRequest struct {
	Model      string                 `json:"model"`
	Input      qwenInput              `json:"input"`
	Parameters map[string]interface{} `json:"parameters"`
}

type qwenInput struct {
	Messages []Message `json:"messages"`
}

type qwenResponse struct {
	Output struct {
		Choices []struct {
			Message struct {
				Content string `json:"content"`
			} `json:"message"`
		} `json:"choices"`
		// Some DashScope endpoints return text directly in output.
		Text string `json:"text"`
	} `json:"output"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

func (p *QwenProvider) GenerateResponse(ctx context.Context, prompt string, systemPrompt string, options map[string]interface{}) (string, error) {
	apiKey := os.Getenv("DASHSCOPE_API_KEY")
	if val, ok := options["api_key"].(string); ok && val != "" {
		apiKey = val
	}
	if apiKey == "" {
		apiKey = os.Getenv("QWEN_API_KEY")
	}
	if apiKey == "" {
		return "", fmt.Errorf("QWEN_API_KEY_MISSING: Please set DASHSCOPE_API_KEY or QWEN_API_KEY")
	}

	model := "qwen-max"
	if val, ok := options["model"].(string); ok && val != "" {
		model = val
	}

	reqBody := qwenRequest{
		Model: model,
		Input: qwenInput{
			Messages: []Message{
				{Role: "system", Content: systemPrompt},
				{Role: "user", Content: prompt},
			},
		},
		Parameters: map[string]interface{}{
			"result_format": "message",
		},
	}

	jsonBody, err := json.Marshal(reqBody)
	if err != nil {
		return "", fmt.Errorf("QWEN_MARSHAL_ERROR: %v", err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST",
		"https://dashscope.aliyuncs.com/api/v1/services/aigc/text-generation/generation",
		bytes.NewBuffer(jsonBody))
	if err != nil {
		return "", fmt.Errorf("QWEN_REQ_CREATE_ERROR: %v", err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+apiKey)

	client := &http.Client{}
	resp, err := client.Do(req)
	if err != nil {
		return "", fmt.Errorf("QWEN_API_CALL_ERROR: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		bodyBytes, _ := io.ReadAll(resp.Body)
		return "", fmt.Errorf("QWEN_API_ERROR: status=%d body=%s", resp.StatusCode, string(bodyBytes))
	}

	var result qwenResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return "", fmt.Errorf("QWEN_UNMARSHAL_ERROR: %v", err)
	}

	if result.Code != "" {
		return "", fmt.Errorf("QWEN_API_ERROR: %s - %s", result.Code, result.Message)
	}

	if len(result.Output.Choices) > 0 {
		return result.Output.Choices[0].Message.Content, nil
	}
	if result.Output.Text != "" {
		return result.Output.Text, nil
	}

	return "", fmt.Errorf("QWEN_NO_CONTENT: empty response")
}

func (p *QwenProvider) AdaptInstructions(raw string) string {
	return raw
}
