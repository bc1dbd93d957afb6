package summarizer

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"scale/backend/go/internal/config"
	"scale/backend/go/internal/models"
	scalehttp "scale/backend/go/pkg/http"
	"scale/backend/go/pkg/logger"

	"github.com/gabriel-vasile/mimetype"
	"github.com/google/uuid"
)

// promptTemplate 是发送给生成模型的固定指令模板。
const promptTemplate = `# Role
You are an expert Content Analyst and Summarizer. Your task is to process the provided text—which may be a transcript from a video, an audio recording, or the content of a document—and generate a structured, professional, and comprehensive summary.

# Input Context
The text provided below may contain conversational fillers (um, ah, like), timestamps, or minor transcription errors. Please ignore these and focus solely on the informational content and context.

# Instructions
1. **Analyze:** Read the entire text to understand the main topic, context, and speaker intent.
2. **Extract:** Identify the most critical points, arguments, facts, and numerical data.
3. **Structure:** Organize the information logically using the format defined below.
4. **Clarify:** Ensure the summary is distinct, easy to read, and free of repetition.
5. **Output format:** Use markdown syntax.
6. **Answer lenguage:** Russian.
`

const (
	// maxGenerateAttempts 是生成请求的最大尝试次数。
	maxGenerateAttempts = 5
	// generateBackoff 是两次生成尝试之间的固定间隔，无指数增长、无抖动。
	generateBackoff = 2 * time.Second
	// filePollInterval 是轮询 provider 文件处理状态的固定间隔。
	filePollInterval = 2 * time.Second

	// 以下文案会被原样写入任务的 result_text，保持人类可读。
	noTranscriptMessage   = "Could not get transcription"
	retryExhaustedMessage = "Failed to generate summary after retries"
	handlingErrorMessage  = "Handling error"
)

// ErrProviderFailed 表示 provider 对已上传文件报告了终态失败。
// 这是不可重试的永久性错误，任务会以 error 状态落库。
var ErrProviderFailed = errors.New("file processing failed on the provider side")

// Summarizer 封装了转录提取和基于生成式 AI 的摘要生成，
// 包括重试策略和临时文件的生命周期管理。
// API Key 按请求传入，Summarizer 自身不持有任何用户凭证。
type Summarizer struct {
	logger      *logger.Logger
	httpClient  *scalehttp.Client
	newProvider ProviderFactory
	tempDir     string

	// 可在测试中覆盖的参数。
	transcriptURL string
	languages     []string
	pollInterval  time.Duration
	backoff       time.Duration
}

// New 创建一个 Summarizer。httpClient 用于转录抓取（带熔断），
// Gemini 客户端则按请求用对应用户的 API Key 创建。
func New(cfg config.SummarizerConfig, httpClient *scalehttp.Client, log *logger.Logger) *Summarizer {
	return &Summarizer{
		logger:        log,
		httpClient:    httpClient,
		newProvider:   newGeminiProvider(cfg.Model),
		tempDir:       cfg.TempDir,
		transcriptURL: defaultTranscriptURL,
		languages:     []string{"en", "ru"},
		pollInterval:  filePollInterval,
		backoff:       generateBackoff,
	}
}

// SummarizeYouTube 对一个视频链接做摘要：提取转录、写入临时文件、
// 交给生成模型。拿不到转录时返回固定的提示文案而不是错误。
func (s *Summarizer) SummarizeYouTube(ctx context.Context, videoURL, apiKey string) (string, error) {
	requestID := uuid.New().String()

	transcript, ok := s.fetchTranscript(ctx, videoURL)
	if !ok {
		s.logger.WithPayload(map[string]interface{}{"request_id": requestID, "url": videoURL}).
			Debug("No transcription provided")
		return noTranscriptMessage, nil
	}

	s.logger.WithPayload(map[string]interface{}{"request_id": requestID}).
		Info("Handling request for youtube video")

	if err := os.MkdirAll(s.tempDir, 0o755); err != nil {
		s.logger.WithError(models.ErrorInfo{Message: err.Error()}).Error("Failed to create temp dir")
		return handlingErrorMessage, nil
	}
	path := filepath.Join(s.tempDir, "transcription_"+requestID+".txt")
	content := "YouTube video transcription:\n" + transcript
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		s.logger.WithError(models.ErrorInfo{Message: err.Error()}).Error("Failed to write transcription file")
		return handlingErrorMessage, nil
	}

	return s.processWithProvider(ctx, path, apiKey, requestID)
}

// SummarizeFile 对一个已上传的本地文件做摘要。
func (s *Summarizer) SummarizeFile(ctx context.Context, path, apiKey string) (string, error) {
	requestID := uuid.New().String()

	if _, err := os.Stat(path); err != nil {
		s.logger.WithPayload(map[string]interface{}{"request_id": requestID, "path": path}).
			Debug("No such file for request")
		return fmt.Sprintf("File was not found for request %s", requestID), nil
	}

	s.logger.WithPayload(map[string]interface{}{"request_id": requestID, "path": path}).
		Info("Handling request for file")

	return s.processWithProvider(ctx, path, apiKey, requestID)
}

// processWithProvider 将本地文件交给生成式 AI provider：
// 上传 → 轮询处理状态 → 最多 5 次生成尝试（固定 2 秒间隔）。
// 除了 provider 报告终态失败之外，所有内部错误都折叠成可读文本返回。
func (s *Summarizer) processWithProvider(ctx context.Context, filePath, apiKey, requestID string) (string, error) {
	provider, err := s.newProvider(ctx, apiKey)
	if err != nil {
		s.logger.WithError(models.ErrorInfo{Message: err.Error(), Type: "provider_error"}).
			Error("Failed to create provider client for request " + requestID)
		return fmt.Sprintf("Processing error: %v", err), nil
	}
	defer provider.Close()

	// 在上传前探测 MIME 类型，provider 需要它来决定如何处理文件。
	mime := ""
	if mt, err := mimetype.DetectFile(filePath); err == nil {
		mime = mt.String()
	}

	file, err := provider.Upload(ctx, filePath, mime)
	if err != nil {
		s.logger.WithError(models.ErrorInfo{Message: err.Error(), Type: "provider_error"}).
			Error("Failed to upload file for request " + requestID)
		return fmt.Sprintf("Processing error: %v", err), nil
	}

	// 等待 provider 端的文件处理结束。
	for file.State == FileStateProcessing {
		if err := sleepCtx(ctx, s.pollInterval); err != nil {
			return "", err
		}
		file, err = provider.FileState(ctx, file.Name)
		if err != nil {
			s.logger.WithError(models.ErrorInfo{Message: err.Error(), Type: "provider_error"}).
				Error("Failed to poll file state for request " + requestID)
			return fmt.Sprintf("Processing error: %v", err), nil
		}
	}

	if file.State == FileStateFailed {
		s.logger.WithPayload(map[string]interface{}{"request_id": requestID}).
			Error("Provider reported failed state for uploaded file")
		return "", fmt.Errorf("request %s: %w", requestID, ErrProviderFailed)
	}

	for i := 0; i < maxGenerateAttempts; i++ {
		text, err := provider.Generate(ctx, file, promptTemplate)
		if err == nil {
			// 首次成功后删除临时文件；文件不存在不算错误。
			if rmErr := os.Remove(filePath); rmErr != nil && !os.IsNotExist(rmErr) {
				s.logger.WithError(models.ErrorInfo{Message: rmErr.Error()}).
					Warn("Failed to remove temp file for request " + requestID)
			}
			return text, nil
		}

		s.logger.WithError(models.ErrorInfo{Message: err.Error(), Type: "provider_error"}).
			Error(fmt.Sprintf("Iteration %d failed for request %s", i, requestID))

		if err := sleepCtx(ctx, s.backoff); err != nil {
			return "", err
		}
	}

	s.logger.WithPayload(map[string]interface{}{"request_id": requestID}).
		Error("Response not generated after retries")
	return retryExhaustedMessage, nil
}

// sleepCtx 等待指定时长，上下文取消时提前返回。
func sleepCtx(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
