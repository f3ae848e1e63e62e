package fm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
)

// DefaultGoogleFontsEndpoint is the Google Fonts developer API listing.
const DefaultGoogleFontsEndpoint = "https://www.googleapis.com/webfonts/v1/webfonts"

var errMissingAPIKey = errors.New("api key not set; see https://developers.google.com/fonts/docs/developer_api")

// GoogleFonts lists families from the Google Fonts developer API.
type GoogleFonts struct {
	client   *http.Client
	endpoint string
	apiKey   string
	sort     string
}

type googleFont struct {
	Family   string       `json:"family"`
	Category string       `json:"category"`
	Variants []string     `json:"variants"`
	Files    orderedFiles `json:"files"`
}

type googleFontsList struct {
	Items []googleFont `json:"items"`
}

// GoogleFontsOption configures a GoogleFonts directory.
type GoogleFontsOption func(*GoogleFonts)

func WithGoogleEndpoint(endpoint string) GoogleFontsOption {
	return func(g *GoogleFonts) { g.endpoint = endpoint }
}

func WithGoogleSort(sort string) GoogleFontsOption {
	return func(g *GoogleFonts) { g.sort = sort }
}

func WithGoogleClient(client *http.Client) GoogleFontsOption {
	return func(g *GoogleFonts) { g.client = client }
}

func NewGoogleFonts(apiKey string, opts ...GoogleFontsOption) *GoogleFonts {
	g := &GoogleFonts{
		client:   defaultClient,
		endpoint: DefaultGoogleFontsEndpoint,
		apiKey:   apiKey,
		sort:     "popularity",
	}
	for _, opt := range opts {
		opt(g)
	}
	g.client = clientOrDefault(g.client)
	return g
}

func (g *GoogleFonts) Name() string {
	return "google"
}

func (g *GoogleFonts) List(ctx context.Context, limit int) ([]DirectoryEntry, error) {
	if g.apiKey == "" {
		return nil, &DirectoryError{Directory: g.Name(), Err: errMissingAPIKey}
	}

	values := url.Values{
		"key":  []string{g.apiKey},
		"sort": []string{g.sort},
	}
	req, err := http.NewRequestWithContext(ctx, "GET", g.endpoint+"?"+values.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("creating listing request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := g.client.Do(req)
	if err != nil {
		return nil, &DirectoryError{Directory: g.Name(), Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, &DirectoryError{
			Directory: g.Name(),
			Status:    resp.StatusCode,
			Err:       fmt.Errorf("unexpected status: %s", resp.Status),
		}
	}

	var list googleFontsList
	if err := json.NewDecoder(resp.Body).Decode(&list); err != nil {
		return nil, &DirectoryError{Directory: g.Name(), Err: fmt.Errorf("decoding response: %w", err)}
	}

	items := list.Items
	if limit > 0 && len(items) > limit {
		items = items[:limit]
	}
	entries := make([]DirectoryEntry, 0, len(items))
	for _, item := range items {
		entries = append(entries, DirectoryEntry{
			Family:   item.Family,
			Category: item.Category,
			Files:    item.Files,
		})
	}
	return entries, nil
}
