package client

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
)

// Character is the subset of the public character API the companion shows.
type Character struct {
	ID            string `json:"id"`
	Name          string `json:"name"`
	Title         string `json:"title"`
	Vision        string `json:"vision"`
	Weapon        string `json:"weapon"`
	Nation        string `json:"nation"`
	Affiliation   string `json:"affiliation"`
	Rarity        int    `json:"rarity"`
	Constellation string `json:"constellation"`
	Birthday      string `json:"birthday"`
	Description   string `json:"description"`
}

// CharacterSource reads the third-party character API. It needs no auth.
type CharacterSource struct {
	baseURL    string
	httpClient *http.Client
}

func NewCharacterSource(baseURL string, httpClient *http.Client) *CharacterSource {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: defaultHTTPTimeout}
	}
	return &CharacterSource{baseURL: strings.TrimRight(baseURL, "/"), httpClient: httpClient}
}

// List returns every character id, e.g. "hu-tao".
func (c *CharacterSource) List(ctx context.Context) ([]string, error) {
	var names []string
	if err := c.get(ctx, "/characters", &names); err != nil {
		return nil, err
	}
	return names, nil
}

// Get returns one character's details.
func (c *CharacterSource) Get(ctx context.Context, id string) (*Character, error) {
	var ch Character
	if err := c.get(ctx, "/characters/"+url.PathEscape(id), &ch); err != nil {
		return nil, err
	}
	if ch.ID == "" {
		ch.ID = id
	}
	return &ch, nil
}

func (c *CharacterSource) get(ctx context.Context, path string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return fmt.Errorf("characters: building request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("characters: GET %s: %w", path, err)
	}
	defer resp.Body.Close()

	if err := checkResp(resp); err != nil {
		return err
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("characters: decoding %s: %w", path, err)
	}
	return nil
}
