package portal

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

var ErrNoOrigin = errors.New("portal: no origin to register the game with")

// GameObject is the portal's record pointing at a playable game.
type GameObject struct {
	Name         string   `json:"name"`
	Slug         string   `json:"slug"`
	Material     string   `json:"material"`
	DisciplinaID int      `json:"disciplina_id"`
	Series       []string `json:"series"`
}

// Client registers games on the school portal on behalf of their author.
type Client struct {
	baseURL string
	path    string
	http    *http.Client
}

func NewClient(baseURL, path string, timeout time.Duration) *Client {
	if path == "" {
		path = "/api/game-objects"
	}
	return &Client{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		path:    path,
		http:    &http.Client{Timeout: timeout},
	}
}

// CreateGameObject posts obj to origin, or to the configured base URL when
// origin is empty. It returns the response status.
func (c *Client) CreateGameObject(ctx context.Context, origin, token string, obj GameObject) (int, error) {
	base := strings.TrimSuffix(origin, "/")
	if base == "" {
		base = c.baseURL
	}
	if base == "" {
		return 0, ErrNoOrigin
	}
	if obj.Series == nil {
		obj.Series = []string{}
	}

	body, err := json.Marshal(obj)
	if err != nil {
		return 0, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, base+c.path, bytes.NewReader(body))
	if err != nil {
		return 0, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()
	respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<16))
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		var data struct {
			Message string `json:"message"`
			Error   string `json:"error"`
		}
		_ = json.Unmarshal(respBody, &data)
		msg := data.Message
		if msg == "" {
			msg = data.Error
		}
		if msg == "" {
			msg = http.StatusText(resp.StatusCode)
		}
		return resp.StatusCode, fmt.Errorf("portal: %s", msg)
	}
	return resp.StatusCode, nil
}
