package summarizer

import (
	"context"
	"errors"
	"os"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"
)

// FileState 描述 provider 端文件的处理状态。
type FileState int

const (
	FileStateProcessing FileState = iota // provider 仍在处理文件
	FileStateActive                      // 文件可用于生成
	FileStateFailed                      // provider 报告处理失败（终态）
)

// ProviderFile 是 provider 端文件的最小描述。
type ProviderFile struct {
	Name     string
	URI      string
	MIMEType string
	State    FileState
}

// MediaProvider 抽象了生成式 AI 服务的文件处理与内容生成能力。
// 默认实现基于 Gemini；测试注入假实现来验证重试与状态机行为。
type MediaProvider interface {
	Upload(ctx context.Context, path, mimeType string) (*ProviderFile, error)
	FileState(ctx context.Context, name string) (*ProviderFile, error)
	Generate(ctx context.Context, file *ProviderFile, prompt string) (string, error)
	Close() error
}

// ProviderFactory 按请求创建 MediaProvider。
// API Key 是每个用户自己的，所以客户端不能在进程级复用。
type ProviderFactory func(ctx context.Context, apiKey string) (MediaProvider, error)

// geminiProvider 是基于 google/generative-ai-go 的 MediaProvider 实现。
type geminiProvider struct {
	client *genai.Client
	model  string
}

// newGeminiProvider 返回一个创建 Gemini 客户端的工厂。
func newGeminiProvider(model string) ProviderFactory {
	return func(ctx context.Context, apiKey string) (MediaProvider, error) {
		client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
		if err != nil {
			return nil, err
		}
		return &geminiProvider{client: client, model: model}, nil
	}
}

// Upload 将本地文件上传到 Gemini File API。
func (g *geminiProvider) Upload(ctx context.Context, path, mimeType string) (*ProviderFile, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	opts := &genai.UploadFileOptions{}
	if mimeType != "" {
		opts.MIMEType = mimeType
	}

	file, err := g.client.UploadFile(ctx, "", f, opts)
	if err != nil {
		return nil, err
	}
	return fromGenaiFile(file), nil
}

// FileState 查询已上传文件的当前处理状态。
func (g *geminiProvider) FileState(ctx context.Context, name string) (*ProviderFile, error) {
	file, err := g.client.GetFile(ctx, name)
	if err != nil {
		return nil, err
	}
	return fromGenaiFile(file), nil
}

// Generate 基于已上传的文件和指令模板发起一次生成请求。
func (g *geminiProvider) Generate(ctx context.Context, file *ProviderFile, prompt string) (string, error) {
	model := g.client.GenerativeModel(g.model)

	resp, err := model.GenerateContent(ctx,
		genai.FileData{MIMEType: file.MIMEType, URI: file.URI},
		genai.Text(prompt),
	)
	if err != nil {
		return "", err
	}

	var out string
	for _, cand := range resp.Candidates {
		if cand.Content == nil {
			continue
		}
		for _, part := range cand.Content.Parts {
			if text, ok := part.(genai.Text); ok {
				out += string(text)
			}
		}
	}
	if out == "" {
		return "", errors.New("provider returned an empty response")
	}
	return out, nil
}

// Close 释放底层的 Gemini 客户端。
func (g *geminiProvider) Close() error {
	return g.client.Close()
}

func fromGenaiFile(f *genai.File) *ProviderFile {
	pf := &ProviderFile{
		Name:     f.Name,
		URI:      f.URI,
		MIMEType: f.MIMEType,
	}
	switch f.State {
	case genai.FileStateProcessing:
		pf.State = FileStateProcessing
	case genai.FileStateFailed:
		pf.State = FileStateFailed
	default:
		pf.State = FileStateActive
	}
	return pf
}
