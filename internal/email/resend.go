package email

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

const (
	resendEndpoint = "https://api.resend.com/emails"
	sendTimeout    = 30 * time.Second
)

// ResendSender delivers verification mail through the Resend HTTP API.
type ResendSender struct {
	apiKey string
	from   string
	client *http.Client
}

func NewResendSender(apiKey, from string) *ResendSender {
	return &ResendSender{
		apiKey: apiKey,
		from:   from,
		client: &http.Client{Timeout: sendTimeout},
	}
}

type resendRequest struct {
	From    string   `json:"from"`
	To      []string `json:"to"`
	Subject string   `json:"subject"`
	HTML    string   `json:"html"`
}

func (s *ResendSender) SendVerificationCode(ctx context.Context, to, username, code string) error {
	body, err := json.Marshal(resendRequest{
		From:    s.from,
		To:      []string{to},
		Subject: fmt.Sprintf("Verify Your Ascended Tech Lab Account - Code: %s", code),
		HTML:    verificationHTML(username, code),
	})
	if err != nil {
		return fmt.Errorf("encoding email request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, resendEndpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("building email request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+s.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("sending email: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("email provider returned %d: %s", resp.StatusCode, detail)
	}
	return nil
}

func verificationHTML(username, code string) string {
	return fmt.Sprintf(`<html><body style="font-family:sans-serif">
<h2>Ascended Tech Lab</h2>
<p>Hello %s,</p>
<p>Use the verification code below to complete your account setup:</p>
<p style="font-size:32px;font-weight:bold;letter-spacing:8px">%s</p>
<p>This code expires in 15 minutes. If you didn't request it, ignore this email.</p>
</body></html>`, username, code)
}
