package service

import (
	"bytes"
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os/exec"
	"strings"

	openai "github.com/sashabaranov/go-openai"
)

// TextExtractor достает сырой текст из картинки
type TextExtractor interface {
	ExtractText(ctx context.Context, image []byte) (string, error)
}

const ocrPrompt = "Transcribe all text in this image exactly as written, line by line. " +
	"Keep answer option letters or numbers and any marks (asterisks, check marks) that flag the correct answer. " +
	"Do not add commentary. If there is no text, reply with an empty message."

// OpenAIExtractor распознает текст через vision-модель
type OpenAIExtractor struct {
	client *openai.Client
	model  string
}

func NewOpenAIExtractor(apiKey, baseURL, model string) *OpenAIExtractor {
	cfg := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		cfg.BaseURL = baseURL
	}
	if model == "" {
		model = openai.GPT4o
	}
	return &OpenAIExtractor{
		client: openai.NewClientWithConfig(cfg),
		model:  model,
	}
}

func (oe *OpenAIExtractor) ExtractText(ctx context.Context, image []byte) (string, error) {
	if len(image) == 0 {
		return "", fmt.Errorf("%w: empty image", ErrExtractionFailed)
	}
	dataURL := fmt.Sprintf("data:%s;base64,%s", http.DetectContentType(image), base64.StdEncoding.EncodeToString(image))

	resp, err := oe.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: oe.model,
		Messages: []openai.ChatCompletionMessage{
			{
				Role: openai.ChatMessageRoleUser,
				MultiContent: []openai.ChatMessagePart{
					{Type: openai.ChatMessagePartTypeText, Text: ocrPrompt},
					{
						Type: openai.ChatMessagePartTypeImageURL,
						ImageURL: &openai.ChatMessageImageURL{
							URL:    dataURL,
							Detail: openai.ImageURLDetailHigh,
						},
					},
				},
			},
		},
	})
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrExtractionFailed, err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("%w: no response from model", ErrExtractionFailed)
	}
	return strings.TrimSpace(resp.Choices[0].Message.Content), nil
}

// TesseractExtractor запускает tesseract CLI: картинка в stdin, текст из stdout
type TesseractExtractor struct {
	path string
	lang string
}

func NewTesseractExtractor(path, lang string) *TesseractExtractor {
	if path == "" {
		path = "tesseract"
	}
	if lang == "" {
		lang = "eng"
	}
	return &TesseractExtractor{path: path, lang: lang}
}

func (te *TesseractExtractor) ExtractText(ctx context.Context, image []byte) (string, error) {
	cmd := exec.CommandContext(ctx, te.path, "stdin", "stdout", "-l", te.lang)
	cmd.Stdin = bytes.NewReader(image)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	output, err := cmd.Output()
	if err != nil {
		return "", fmt.Errorf("%w: tesseract failed: %v: %s", ErrExtractionFailed, err, strings.TrimSpace(stderr.String()))
	}
	return strings.TrimSpace(string(output)), nil
}

// NoopExtractor используется, когда OCR не настроен
type NoopExtractor struct{}

func (NoopExtractor) ExtractText(context.Context, []byte) (string, error) {
	return "", fmt.Errorf("%w: OCR is not configured", ErrExtractionFailed)
}

type retryExtractor struct {
	next     TextExtractor
	attempts int
	logger   *log.Logger
}

// WithRetry повторяет распознавание до attempts раз (2 = одна повторная попытка).
// Отмена контекста не повторяется.
func WithRetry(next TextExtractor, attempts int, logger *log.Logger) TextExtractor {
	if attempts < 1 {
		attempts = 1
	}
	return &retryExtractor{next: next, attempts: attempts, logger: logger}
}

func (re *retryExtractor) ExtractText(ctx context.Context, image []byte) (string, error) {
	var lastErr error
	for i := 0; i < re.attempts; i++ {
		text, err := re.next.ExtractText(ctx, image)
		if err == nil {
			return text, nil
		}
		lastErr = err
		if ctx.Err() != nil {
			break
		}
		if re.logger != nil {
			re.logger.Printf("OCR attempt %d/%d failed: %v", i+1, re.attempts, err)
		}
	}
	if !errors.Is(lastErr, ErrExtractionFailed) {
		lastErr = fmt.Errorf("%w: %v", ErrExtractionFailed, lastErr)
	}
	return "", lastErr
}
