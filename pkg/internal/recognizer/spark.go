package recognizer

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/bytedance/sonic"
	"github.com/gorilla/websocket"

	"github.com/RadiumAg/image-saas/pkg/configs"
)

// 讯飞星火图片理解接口的会话状态，2 表示最后一帧.
const sparkStatusLast = 2

// Spark 讯飞星火图片理解后端，一次识别对应一个 websocket 会话.
type Spark struct {
	cfg           configs.SparkConfig
	prompt        string
	maxImageBytes int64

	// Endpoint 覆盖默认的 wss://host/path，签名仍按 cfg.Host 与 cfg.Path 计算.
	Endpoint   string
	HTTPClient *http.Client
	Dialer     *websocket.Dialer
	Now        func() time.Time
}

// NewSpark 创建星火后端，缺少凭据时返回错误.
func NewSpark(cfg configs.SparkConfig, prompt string, maxImageBytes int64) (*Spark, error) {
	if cfg.AppID == "" || cfg.APIKey == "" || cfg.APISecret == "" {
		return nil, errors.New("spark recognizer requires app_id, api_key and api_secret")
	}

	if cfg.Host == "" {
		cfg.Host = configs.DefaultSparkHost
	}

	if cfg.Path == "" {
		cfg.Path = configs.DefaultSparkPath
	}

	if cfg.Domain == "" {
		cfg.Domain = configs.DefaultSparkDomain
	}

	if maxImageBytes <= 0 {
		maxImageBytes = configs.DefaultMaxImageBytes
	}

	return &Spark{
		cfg:           cfg,
		prompt:        prompt,
		maxImageBytes: maxImageBytes,
		HTTPClient:    &http.Client{},
		Dialer:        websocket.DefaultDialer,
		Now:           time.Now,
	}, nil
}

type sparkText struct {
	Role        string `json:"role"`
	Content     string `json:"content"`
	ContentType string `json:"content_type,omitempty"`
}

type sparkRequest struct {
	Header struct {
		AppID string `json:"app_id"`
	} `json:"header"`
	Parameter struct {
		Chat struct {
			Domain      string  `json:"domain"`
			Temperature float64 `json:"temperature"`
			TopK        int     `json:"top_k"`
			MaxTokens   int     `json:"max_tokens"`
		} `json:"chat"`
	} `json:"parameter"`
	Payload struct {
		Message struct {
			Text []sparkText `json:"text"`
		} `json:"message"`
	} `json:"payload"`
}

type sparkResponse struct {
	Header struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
		SID     string `json:"sid"`
		Status  int    `json:"status"`
	} `json:"header"`
	Payload struct {
		Choices struct {
			Status int         `json:"status"`
			Text   []sparkText `json:"text"`
		} `json:"choices"`
	} `json:"payload"`
}

// Classify 下载图片，发送给模型并解析返回的标签.
func (s *Spark) Classify(ctx context.Context, imageURL string) ([]string, error) {
	image, err := s.fetchImage(ctx, imageURL)
	if err != nil {
		return nil, err
	}

	text, err := s.chat(ctx, image)
	if err != nil {
		return nil, err
	}

	return ParseLabels(text), nil
}

func (s *Spark) fetchImage(ctx context.Context, imageURL string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, imageURL, nil)
	if err != nil {
		return nil, fmt.Errorf("build image request: %w", err)
	}

	resp, err := s.HTTPClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch image: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetch image: unexpected status %d", resp.StatusCode)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, s.maxImageBytes+1))
	if err != nil {
		return nil, fmt.Errorf("read image: %w", err)
	}

	if int64(len(data)) > s.maxImageBytes {
		return nil, fmt.Errorf("image exceeds %d bytes", s.maxImageBytes)
	}

	return data, nil
}

func (s *Spark) chat(ctx context.Context, image []byte) (string, error) {
	conn, _, err := s.Dialer.DialContext(ctx, s.signedURL(s.Now()), nil)
	if err != nil {
		return "", fmt.Errorf("dial spark: %w", err)
	}
	defer conn.Close()

	if deadline, ok := ctx.Deadline(); ok {
		_ = conn.SetReadDeadline(deadline)
		_ = conn.SetWriteDeadline(deadline)
	}

	// ctx 取消时关闭连接以打断阻塞的读
	stop := context.AfterFunc(ctx, func() { _ = conn.Close() })
	defer stop()

	body, err := sonic.Marshal(s.request(image))
	if err != nil {
		return "", fmt.Errorf("marshal spark request: %w", err)
	}

	if err := conn.WriteMessage(websocket.TextMessage, body); err != nil {
		return "", fmt.Errorf("send spark request: %w", err)
	}

	var sb strings.Builder

	for {
		_, msg, err := conn.ReadMessage()
		if err != nil {
			if ctx.Err() != nil {
				return "", ctx.Err()
			}

			return "", fmt.Errorf("read spark response: %w", err)
		}

		var resp sparkResponse
		if err := sonic.Unmarshal(msg, &resp); err != nil {
			return "", fmt.Errorf("decode spark response: %w", err)
		}

		if resp.Header.Code != 0 {
			return "", fmt.Errorf("spark error %d: %s (sid=%s)", resp.Header.Code, resp.Header.Message, resp.Header.SID)
		}

		for _, t := range resp.Payload.Choices.Text {
			sb.WriteString(t.Content)
		}

		if resp.Header.Status == sparkStatusLast || resp.Payload.Choices.Status == sparkStatusLast {
			return sb.String(), nil
		}
	}
}

func (s *Spark) request(image []byte) sparkRequest {
	var r sparkRequest

	r.Header.AppID = s.cfg.AppID
	r.Parameter.Chat.Domain = s.cfg.Domain
	r.Parameter.Chat.Temperature = 0.5
	r.Parameter.Chat.TopK = 4
	r.Parameter.Chat.MaxTokens = 2028
	r.Payload.Message.Text = []sparkText{
		{Role: "user", Content: base64.StdEncoding.EncodeToString(image), ContentType: "image"},
		{Role: "user", Content: s.prompt, ContentType: "text"},
	}

	return r
}

// signedURL 生成带 HMAC-SHA256 签名的连接地址.
func (s *Spark) signedURL(now time.Time) string {
	date := now.UTC().Format(http.TimeFormat)
	origin := fmt.Sprintf("host: %s\ndate: %s\nGET %s HTTP/1.1", s.cfg.Host, date, s.cfg.Path)

	mac := hmac.New(sha256.New, []byte(s.cfg.APISecret))
	mac.Write([]byte(origin))
	signature := base64.StdEncoding.EncodeToString(mac.Sum(nil))

	authorization := fmt.Sprintf(`api_key="%s", algorithm="hmac-sha256", headers="host date request-line", signature="%s"`,
		s.cfg.APIKey, signature)

	q := url.Values{}
	q.Set("authorization", base64.StdEncoding.EncodeToString([]byte(authorization)))
	q.Set("date", date)
	q.Set("host", s.cfg.Host)

	base := s.Endpoint
	if base == "" {
		base = "wss://" + s.cfg.Host + s.cfg.Path
	}

	return base + "?" + q.Encode()
}
