package summarizer

import (
	"context"
	"encoding/xml"
	"io"
	"net/http"
	"net/url"
	"strings"

	"scale/backend/go/internal/models"
)

// defaultTranscriptURL 是获取视频字幕的 timedtext 端点。
const defaultTranscriptURL = "https://www.youtube.com/api/timedtext"

// extractVideoID 从视频链接中解析出视频 ID。
// 支持三种链接形式：带 v= 查询参数的标准形式、youtu.be 短链、
// 以及路径末段为 ID 的其他 youtube 链接。无法识别时返回空串。
func extractVideoID(videoURL string) string {
	switch {
	case strings.Contains(videoURL, "v="):
		id := strings.SplitN(videoURL, "v=", 2)[1]
		return strings.SplitN(id, "&", 2)[0]
	case strings.Contains(videoURL, "youtu.be"):
		return lastPathSegment(videoURL)
	case strings.Contains(videoURL, "youtube"):
		return lastPathSegment(videoURL)
	default:
		return ""
	}
}

func lastPathSegment(rawURL string) string {
	rawURL = strings.SplitN(rawURL, "?", 2)[0]
	rawURL = strings.TrimRight(rawURL, "/")
	parts := strings.Split(rawURL, "/")
	return parts[len(parts)-1]
}

// timedTextDoc 对应 timedtext 端点返回的 XML 结构。
type timedTextDoc struct {
	XMLName xml.Name `xml:"transcript"`
	Lines   []struct {
		Text string `xml:",chardata"`
	} `xml:"text"`
}

// fetchTranscript 按偏好语言顺序抓取视频转录并展平成纯文本。
// 任何失败（无法识别的链接、网络错误、无字幕）都返回 ok=false，
// 不向外抛错误——调用方会折叠成固定的提示文案。
func (s *Summarizer) fetchTranscript(ctx context.Context, videoURL string) (string, bool) {
	videoID := extractVideoID(videoURL)
	if videoID == "" {
		return "", false
	}

	for _, lang := range s.languages {
		text, err := s.fetchTimedText(ctx, videoID, lang)
		if err != nil {
			s.logger.WithError(models.ErrorInfo{Message: err.Error()}).
				Debug("Transcript fetch failed for language " + lang)
			continue
		}
		if text != "" {
			return text, true
		}
	}
	return "", false
}

func (s *Summarizer) fetchTimedText(ctx context.Context, videoID, lang string) (string, error) {
	q := url.Values{}
	q.Set("lang", lang)
	q.Set("v", videoID)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.transcriptURL+"?"+q.Encode(), nil)
	if err != nil {
		return "", err
	}

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", nil
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", err
	}

	var doc timedTextDoc
	if err := xml.Unmarshal(body, &doc); err != nil {
		return "", nil // 空响应或非 XML 响应意味着该语言没有字幕
	}

	lines := make([]string, 0, len(doc.Lines))
	for _, line := range doc.Lines {
		if t := strings.TrimSpace(line.Text); t != "" {
			lines = append(lines, t)
		}
	}
	return strings.Join(lines, "\n"), nil
}
