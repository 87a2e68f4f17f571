package http

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

const defaultTimeout = 30 * time.Second

type HTTPClient struct {
	client *http.Client
}

func NewHTTPClient() IClient {
	return &HTTPClient{
		client: &http.Client{Timeout: defaultTimeout},
	}
}

func (c *HTTPClient) DoHTTPRequest(ctx context.Context, requestParam *RequestParam) error {
	if requestParam == nil {
		return errors.New("request param is nil")
	}

	if requestParam.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, requestParam.Timeout)
		defer cancel()
	}

	body, contentType, err := encodeBody(requestParam.Body)
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, requestParam.Method, requestParam.RequestURI, body)
	if err != nil {
		return err
	}
	for k, v := range requestParam.Header {
		req.Header.Set(k, v)
	}
	if req.Header.Get("Content-Type") == "" && contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return err
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response body: %w", err)
	}

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		return fmt.Errorf("HTTP request failed with status %d: %s", resp.StatusCode, string(data))
	}

	if requestParam.Response != nil && len(data) > 0 {
		if err := json.Unmarshal(data, requestParam.Response); err != nil {
			return fmt.Errorf("unmarshal response: %w", err)
		}
	}

	return nil
}

// encodeBody 统一各类 body：io.Reader / []byte 原样发送并嗅探
// Content-Type，其余 JSON 序列化
func encodeBody(body interface{}) (io.Reader, string, error) {
	switch b := body.(type) {
	case nil:
		return nil, "", nil
	case io.Reader:
		data, err := io.ReadAll(b)
		if err != nil {
			return nil, "", fmt.Errorf("read request body: %w", err)
		}
		return bytes.NewReader(data), sniffContentType(data), nil
	case []byte:
		return bytes.NewReader(b), sniffContentType(b), nil
	default:
		data, err := json.Marshal(b)
		if err != nil {
			return nil, "", err
		}
		return bytes.NewReader(data), "application/json", nil
	}
}

func sniffContentType(data []byte) string {
	if len(data) == 0 {
		return ""
	}
	ct := http.DetectContentType(data)
	if i := strings.Index(ct, ";"); i >= 0 {
		ct = ct[:i]
	}
	return ct
}
