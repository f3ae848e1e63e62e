package fm

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sort"
	"strconv"
)

const (
	DefaultFontsourceEndpoint = "https://api.fontsource.org/v1/fonts"
	DefaultFontsourceCDN      = "https://cdn.jsdelivr.net/fontsource/fonts"

	userAgent = "typecore/1.0"
)

// Fontsource lists families from fontsource.org. It needs no credential.
type Fontsource struct {
	client   *http.Client
	endpoint string
	cdn      string
}

func NewFontsource(client *http.Client, endpoint, cdn string) *Fontsource {
	if endpoint == "" {
		endpoint = DefaultFontsourceEndpoint
	}
	if cdn == "" {
		cdn = DefaultFontsourceCDN
	}
	return &Fontsource{
		client:   clientOrDefault(client),
		endpoint: endpoint,
		cdn:      cdn,
	}
}

func (s *Fontsource) Name() string {
	return "fontsource"
}

type fontSourceFont struct {
	ID        string   `json:"id"`
	Family    string   `json:"family"`
	Category  string   `json:"category"`
	DefSubset string   `json:"defSubset"`
	Weights   []int    `json:"weights"`
	Styles    []string `json:"styles"`
}

func (s *Fontsource) List(ctx context.Context, limit int) ([]DirectoryEntry, error) {
	req, err := http.NewRequestWithContext(ctx, "GET", s.endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("creating listing request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, &DirectoryError{Directory: s.Name(), Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, &DirectoryError{
			Directory: s.Name(),
			Status:    resp.StatusCode,
			Err:       fmt.Errorf("unexpected status: %s", resp.Status),
		}
	}

	var fonts []fontSourceFont
	if err := json.NewDecoder(resp.Body).Decode(&fonts); err != nil {
		return nil, &DirectoryError{Directory: s.Name(), Err: fmt.Errorf("decoding response: %w", err)}
	}

	if limit > 0 && len(fonts) > limit {
		fonts = fonts[:limit]
	}
	entries := make([]DirectoryEntry, 0, len(fonts))
	for _, f := range fonts {
		entries = append(entries, DirectoryEntry{
			Family:   f.Family,
			Category: f.Category,
			Files:    s.files(f),
		})
	}
	return entries, nil
}

// files builds CDN download URLs using the Google-style keys ("regular",
// "italic", "700", "700italic").
func (s *Fontsource) files(f fontSourceFont) []VariantFile {
	subset := f.DefSubset
	if subset == "" {
		subset = "latin"
	}
	weights := append([]int(nil), f.Weights...)
	sort.Ints(weights)

	var files []VariantFile
	for _, w := range weights {
		for _, style := range []string{"normal", "italic"} {
			if !hasStyle(f.Styles, style) {
				continue
			}
			files = append(files, VariantFile{
				Key: variantKey(w, style),
				URL: fmt.Sprintf("%s/%s@latest/%s-%d-%s.ttf", s.cdn, f.ID, subset, w, style),
			})
		}
	}
	return files
}

func hasStyle(styles []string, style string) bool {
	for _, s := range styles {
		if s == style {
			return true
		}
	}
	return false
}

func variantKey(weight int, style string) string {
	if weight == 400 {
		if style == "italic" {
			return "italic"
		}
		return "regular"
	}
	if style == "italic" {
		return strconv.Itoa(weight) + "italic"
	}
	return strconv.Itoa(weight)
}
