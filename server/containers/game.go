package containers

import (
	"encoding/json"
	"io"
	"strings"
	"time"

	"github.com/bitterfly/go-chaos/fabrica/schema"
	"github.com/bitterfly/go-chaos/fabrica/utils"
)

const MaxNameLength = 255

// GameRequest is the body of create and update requests.
type GameRequest struct {
	Name         string          `json:"name"`
	Layout       int             `json:"layout"`
	Options      json.RawMessage `json:"options"`
	DisciplinaID *int            `json:"disciplina_id,omitempty"`
	Series       []string        `json:"series,omitempty"`
}

func ParseGameRequest(data io.Reader) (*GameRequest, error) {
	req := &GameRequest{}
	if err := utils.Parse(data, req); err != nil {
		return nil, err
	}
	req.Name = strings.TrimSpace(req.Name)
	return req, nil
}

type Game struct {
	Kind      schema.Kind     `json:"kind"`
	Name      string          `json:"name"`
	Slug      string          `json:"slug"`
	Layout    int             `json:"layout"`
	Options   json.RawMessage `json:"options"`
	URL       string          `json:"url"`
	CreatedAt time.Time       `json:"created_at"`
	UpdatedAt time.Time       `json:"updated_at"`
}

// NewGame builds the response for g. gameAddress is the public address the
// game page is served under.
func NewGame(g *schema.GameObject, gameAddress string) Game {
	return Game{
		Kind:      g.Kind,
		Name:      g.Name,
		Slug:      g.Slug,
		Layout:    g.Layout,
		Options:   json.RawMessage(g.Options),
		URL:       GameURL(gameAddress, g.Kind, g.Slug),
		CreatedAt: g.CreatedAt,
		UpdatedAt: g.UpdatedAt,
	}
}

func GameURL(gameAddress string, kind schema.Kind, slug string) string {
	return gameAddress + "/game" + kind.Path(slug)
}

// Kind is one entry of the game type listing.
type Kind struct {
	Kind    schema.Kind `json:"kind"`
	Embed   string      `json:"embed"`
	Address string      `json:"address"`
}
