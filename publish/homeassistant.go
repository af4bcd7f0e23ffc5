package publish

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

// PublishError is returned when the state store answers with a status
// other than 200 or 201.
type PublishError struct {
	Entity string
	Status int
	Body   string
}

func (e *PublishError) Error() string {
	return fmt.Sprintf("publish: %s: status %d: %s", e.Entity, e.Status, e.Body)
}

type HomeAssistantConfig struct {
	// URL is the base URL of the instance, e.g. http://homeassistant:8123
	URL   string
	Token string
	// Timeout bounds each request, 5s when zero
	Timeout time.Duration
}

// HomeAssistant writes sensors through the REST states endpoint.
type HomeAssistant struct {
	url    string
	token  string
	client *http.Client
}

type stateBody struct {
	State      interface{}       `json:"state"`
	Attributes map[string]string `json:"attributes"`
}

func NewHomeAssistant(cfg HomeAssistantConfig) (*HomeAssistant, error) {
	if cfg.URL == "" {
		return nil, errors.New("publish: home assistant url required")
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 5 * time.Second
	}
	return &HomeAssistant{
		url:    strings.TrimRight(cfg.URL, "/"),
		token:  cfg.Token,
		client: &http.Client{Timeout: cfg.Timeout},
	}, nil
}

func (h *HomeAssistant) Publish(ctx context.Context, s Sensor) error {
	body, err := json.Marshal(stateBody{State: s.Value, Attributes: s.Attributes})
	if err != nil {
		return fmt.Errorf("publish: encode %s: %w", s.EntityID(), err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, h.url+"/api/states/"+s.EntityID(), bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	if h.token != "" {
		req.Header.Set("Authorization", "Bearer "+h.token)
	}

	resp, err := h.client.Do(req)
	if err != nil {
		return fmt.Errorf("publish: %s: %w", s.EntityID(), err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return &PublishError{
			Entity: s.EntityID(),
			Status: resp.StatusCode,
			Body:   string(msg),
		}
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	return nil
}
