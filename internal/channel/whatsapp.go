package channel

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/leadzap/leadzap-backend/internal/model"
)

// WhatsAppCloudAdapter sends through the WhatsApp Business Cloud API.
type WhatsAppCloudAdapter struct {
	BaseURL    string // overridable for tests
	HTTPClient *http.Client
}

func NewWhatsAppCloudAdapter() *WhatsAppCloudAdapter {
	return &WhatsAppCloudAdapter{
		BaseURL: "https://graph.facebook.com/v18.0",
		HTTPClient: &http.Client{
			Timeout: 15 * time.Second,
		},
	}
}

func (w *WhatsAppCloudAdapter) Send(ctx context.Context, conn *model.Connection, contact *model.Contact, text string) error {
	if contact.Phone == "" {
		return fmt.Errorf("contact %d has no phone number", contact.ID)
	}

	url := fmt.Sprintf("%s/%s/messages", strings.TrimRight(w.BaseURL, "/"), conn.PhoneNumberID)
	payload := map[string]interface{}{
		"messaging_product": "whatsapp",
		"to":                contact.Phone,
		"type":              "text",
		"text": map[string]string{
			"body": text,
		},
	}
	data, _ := json.Marshal(payload)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewBuffer(data))
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+conn.AccessToken)
	req.Header.Set("Content-Type", "application/json")

	resp, err := w.HTTPClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		body, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("whatsapp send failed (%d): %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}
	return nil
}

var _ Adapter = (*WhatsAppCloudAdapter)(nil)
