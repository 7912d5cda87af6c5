package recognizer_test

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/bytedance/sonic"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/RadiumAg/image-saas/pkg/apperr"
	"github.com/RadiumAg/image-saas/pkg/configs"
	"github.com/RadiumAg/image-saas/pkg/internal/recognizer"
)

func TestParseLabels(t *testing.T) {
	tests := []struct {
		in   string
		want []string
	}{
		{"猫，狗、**宠物** 室内", []string{"猫", "狗", "宠物", "室内"}},
		{"`beach`, sunset\nbeach", []string{"beach", "sunset"}},
		{"这是一个非常非常长的不会被保留的标签,ok", []string{"ok"}},
		{"  ", []string{}},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, recognizer.ParseLabels(tt.in), tt.in)
	}
}

func TestNew(t *testing.T) {
	c, err := recognizer.New(configs.RecognizerConfig{Provider: "none"})
	require.NoError(t, err)
	assert.IsType(t, recognizer.None{}, c)

	_, err = recognizer.New(configs.RecognizerConfig{Provider: "spark"})
	assert.Error(t, err)

	_, err = recognizer.New(configs.RecognizerConfig{Provider: "gpt"})
	assert.Error(t, err)
}

type sparkServer struct {
	*httptest.Server
	frames []string
	code   int
	got    atomic.Value
}

func newSparkServer(t *testing.T, frames []string, code int) *sparkServer {
	t.Helper()

	s := &sparkServer{frames: frames, code: code}
	upgrader := websocket.Upgrader{}

	mux := http.NewServeMux()
	mux.HandleFunc("/cat.png", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("not-really-a-png"))
	})
	mux.HandleFunc("/v2.1/image", func(w http.ResponseWriter, r *http.Request) {
		s.got.Store(r.URL.Query())

		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()

		_, msg, err := conn.ReadMessage()
		if err != nil {
			return
		}

		node, _ := sonic.Get(msg, "payload", "message", "text", 0, "content")
		content, _ := node.String()
		if content != base64.StdEncoding.EncodeToString([]byte("not-really-a-png")) {
			return
		}

		for i, f := range s.frames {
			status := 1
			if i == len(s.frames)-1 {
				status = 2
			}

			resp := map[string]any{
				"header":  map[string]any{"code": s.code, "message": "bad", "sid": "sid-1", "status": status},
				"payload": map[string]any{"choices": map[string]any{"status": status, "text": []map[string]any{{"content": f}}}},
			}
			b, _ := sonic.Marshal(resp)
			_ = conn.WriteMessage(websocket.TextMessage, b)
		}
	})

	s.Server = httptest.NewServer(mux)
	t.Cleanup(s.Close)

	return s
}

func newSpark(t *testing.T, srv *sparkServer) *recognizer.Spark {
	t.Helper()

	sp, err := recognizer.NewSpark(configs.SparkConfig{
		AppID: "app", APIKey: "key", APISecret: "secret",
		Host: "spark.example.com", Path: "/v2.1/image", Domain: "imagev3",
	}, "tags please", 1024)
	require.NoError(t, err)

	sp.Endpoint = "ws" + strings.TrimPrefix(srv.URL, "http") + "/v2.1/image"
	sp.Now = func() time.Time { return time.Date(2025, 6, 1, 8, 0, 0, 0, time.UTC) }

	return sp
}

func TestSparkClassify(t *testing.T) {
	srv := newSparkServer(t, []string{"猫，**宠物**", "、室内"}, 0)
	sp := newSpark(t, srv)

	labels, err := sp.Classify(context.Background(), srv.URL+"/cat.png")
	require.NoError(t, err)
	assert.Equal(t, []string{"猫", "宠物", "室内"}, labels)

	// 校验签名
	q := srv.got.Load().(url.Values)
	date := q["date"][0]
	assert.Equal(t, "Sun, 01 Jun 2025 08:00:00 GMT", date)
	assert.Equal(t, "spark.example.com", q["host"][0])

	auth, err := base64.StdEncoding.DecodeString(q["authorization"][0])
	require.NoError(t, err)

	mac := hmac.New(sha256.New, []byte("secret"))
	mac.Write([]byte("host: spark.example.com\ndate: " + date + "\nGET /v2.1/image HTTP/1.1"))
	sig := base64.StdEncoding.EncodeToString(mac.Sum(nil))

	assert.Equal(t,
		`api_key="key", algorithm="hmac-sha256", headers="host date request-line", signature="`+sig+`"`,
		string(auth))
}

func TestSparkErrorCode(t *testing.T) {
	srv := newSparkServer(t, []string{""}, 10013)
	sp := newSpark(t, srv)

	_, err := sp.Classify(context.Background(), srv.URL+"/cat.png")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "10013")
}

func TestSparkImageTooLarge(t *testing.T) {
	big := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write(make([]byte, 4096))
	}))
	defer big.Close()

	srv := newSparkServer(t, []string{"猫"}, 0)
	sp := newSpark(t, srv)

	_, err := sp.Classify(context.Background(), big.URL)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "exceeds")
}

func TestGuardTimeout(t *testing.T) {
	slow := recognizer.ClassifierFunc(func(ctx context.Context, _ string) ([]string, error) {
		<-ctx.Done()
		return nil, ctx.Err()
	})

	g := recognizer.Guard(slow, "test", 20*time.Millisecond, configs.CircuitBreakerConfig{})

	_, err := g.Classify(context.Background(), "https://example.com/a.png")
	require.Error(t, err)
	assert.True(t, apperr.Is(err, apperr.CodeUpstreamUnavailable))
}

func TestGuardBreakerOpens(t *testing.T) {
	var calls atomic.Int32

	failing := recognizer.ClassifierFunc(func(context.Context, string) ([]string, error) {
		calls.Add(1)
		return nil, errors.New("boom")
	})

	g := recognizer.Guard(failing, "test", time.Second, configs.CircuitBreakerConfig{
		Enabled: true, FailureRate: 0.5, MinRequests: 2, IntervalSeconds: 60, TimeoutSeconds: 60, MaxRequestsInHalf: 1,
	})

	for range 3 {
		_, err := g.Classify(context.Background(), "x")
		assert.True(t, apperr.Is(err, apperr.CodeUpstreamUnavailable))
	}

	assert.Equal(t, int32(2), calls.Load())
	assert.Equal(t, "open", g.State())
}

func TestGuardSuccess(t *testing.T) {
	g := recognizer.Guard(recognizer.None{}, "none", time.Second, configs.CircuitBreakerConfig{Enabled: true, MinRequests: 1})

	labels, err := g.Classify(context.Background(), "x")
	require.NoError(t, err)
	assert.Empty(t, labels)
}
