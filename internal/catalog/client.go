package catalog

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/fdg312/meal-planner/internal/meal"
)

const maxIngredients = 20

// Client reads TheMealDB-compatible endpoints.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

func NewClient(baseURL string, hc *http.Client) *Client {
	if hc == nil {
		hc = &http.Client{}
	}
	return &Client{baseURL: strings.TrimRight(baseURL, "/"), httpClient: hc}
}

// Search looks recipes up by name (search.php?s=).
func (c *Client) Search(ctx context.Context, name string) ([]meal.CatalogEntry, error) {
	raw, err := c.get(ctx, "search.php", url.Values{"s": {name}})
	if err != nil {
		return nil, err
	}
	return entriesFromRaw(raw), nil
}

// Lookup returns full detail for one recipe (lookup.php?i=). The bool is
// false when the catalog does not know the id.
func (c *Client) Lookup(ctx context.Context, id string) (meal.CatalogEntry, bool, error) {
	raw, err := c.get(ctx, "lookup.php", url.Values{"i": {id}})
	if err != nil {
		return meal.CatalogEntry{}, false, err
	}
	if len(raw) == 0 {
		return meal.CatalogEntry{}, false, nil
	}
	return entryFromRaw(raw[0]), true, nil
}

// FilterByArea lists recipes of one origin (filter.php?a=). Entries only
// carry id, name and image.
func (c *Client) FilterByArea(ctx context.Context, area string) ([]meal.CatalogEntry, error) {
	raw, err := c.get(ctx, "filter.php", url.Values{"a": {area}})
	if err != nil {
		return nil, err
	}
	return entriesFromRaw(raw), nil
}

type mealsResponse struct {
	Meals []map[string]any `json:"meals"`
}

func (c *Client) get(ctx context.Context, endpoint string, q url.Values) ([]map[string]any, error) {
	u := c.baseURL + "/" + endpoint + "?" + q.Encode()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("catalog request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read catalog response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("catalog %s failed with status %d", endpoint, resp.StatusCode)
	}

	var parsed mealsResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, fmt.Errorf("malformed catalog response: %w", err)
	}
	return parsed.Meals, nil
}

func entriesFromRaw(raw []map[string]any) []meal.CatalogEntry {
	out := make([]meal.CatalogEntry, 0, len(raw))
	for _, r := range raw {
		e := entryFromRaw(r)
		if e.ID == "" || e.Name == "" {
			continue
		}
		out = append(out, e)
	}
	return out
}

func entryFromRaw(r map[string]any) meal.CatalogEntry {
	e := meal.CatalogEntry{
		ID:             str(r, "idMeal"),
		Name:           str(r, "strMeal"),
		Image:          str(r, "strMealThumb"),
		Classification: str(r, "strCategory"),
		Area:           str(r, "strArea"),
		Instructions:   CleanText(str(r, "strInstructions")),
	}
	for i := 1; i <= maxIngredients; i++ {
		ing := str(r, fmt.Sprintf("strIngredient%d", i))
		if ing == "" {
			continue
		}
		measure := str(r, fmt.Sprintf("strMeasure%d", i))
		e.Ingredients = append(e.Ingredients, strings.TrimSpace(measure+" "+ing))
	}
	return e
}

func str(r map[string]any, key string) string {
	switch v := r[key].(type) {
	case string:
		return strings.TrimSpace(v)
	case float64:
		return fmt.Sprintf("%.0f", v)
	default:
		return ""
	}
}
