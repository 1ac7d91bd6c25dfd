package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/fatih/color"
	"github.com/google/uuid"
)

const webhookPath = "/api/v1/webhook/message"

// webhookPayload uses the bridge shape the API accepts alongside the
// gateway shape.
type webhookPayload struct {
	Phone     string `json:"phone"`
	Content   string `json:"content"`
	Name      string `json:"name"`
	MessageID string `json:"messageId"`
}

type ack struct {
	Success bool   `json:"success"`
	LeadID  int64  `json:"leadId"`
	Skipped string `json:"skipped"`
	Error   string `json:"error"`
}

type simulator struct {
	url    string
	secret string
	http   *http.Client
	ok     *color.Color
	fail   *color.Color
	info   *color.Color
}

func newSimulator(apiURL, secret string) *simulator {
	return &simulator{
		url:    strings.TrimRight(apiURL, "/") + webhookPath,
		secret: secret,
		http:   &http.Client{Timeout: 10 * time.Second},
		ok:     color.New(color.FgGreen),
		fail:   color.New(color.FgRed),
		info:   color.New(color.FgYellow),
	}
}

// replay sends every message of conv and returns how many failed.
func (s *simulator) replay(ctx context.Context, conv conversation, delay time.Duration) int {
	s.info.Printf("-- %s (%s)\n", conv.Name, conv.Phone)
	failed := 0
	for i, msg := range conv.Messages {
		if !s.send(ctx, conv.Phone, conv.Name, msg) {
			failed++
		}
		if i == len(conv.Messages)-1 {
			break
		}
		select {
		case <-ctx.Done():
			return failed
		case <-time.After(delay):
		}
	}
	return failed
}

func (s *simulator) send(ctx context.Context, phone, name, content string) bool {
	res, err := s.post(ctx, webhookPayload{
		Phone:     phone,
		Content:   content,
		Name:      name,
		MessageID: "sim-" + uuid.NewString(),
	})
	if err != nil {
		s.fail.Printf("   x %s: %v\n", content, err)
		return false
	}
	if !res.Success {
		s.fail.Printf("   x %s: %s\n", content, res.Error)
		return false
	}
	s.ok.Printf("   + lead %d <- %s\n", res.LeadID, content)
	return true
}

func (s *simulator) post(ctx context.Context, payload webhookPayload) (ack, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return ack{}, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.url, bytes.NewReader(body))
	if err != nil {
		return ack{}, err
	}
	req.Header.Set("Content-Type", "application/json")
	if s.secret != "" {
		req.Header.Set("X-Webhook-Secret", s.secret)
	}

	resp, err := s.http.Do(req)
	if err != nil {
		return ack{}, err
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	data, err := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	if err != nil {
		return ack{}, err
	}

	var out ack
	if err := json.Unmarshal(data, &out); err != nil {
		return ack{}, fmt.Errorf("status %d: %s", resp.StatusCode, strings.TrimSpace(string(data)))
	}
	if resp.StatusCode != http.StatusOK && out.Error == "" {
		out.Error = fmt.Sprintf("status %d", resp.StatusCode)
	}
	return out, nil
}
