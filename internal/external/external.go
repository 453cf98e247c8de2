// Package external implements the two-tier knowledge fallback used when
// retrieval confidence is too low: an encyclopedia summary lookup first,
// then a web-search snippet. Failures degrade to human-readable strings and
// never propagate as errors.
package external

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const (
	defaultWikipediaURL = "https://en.wikipedia.org/api/rest_v1/page/summary/"
	defaultSerpAPIURL   = "https://serpapi.com/search.json"

	lookupTimeout = 5 * time.Second
	searchTimeout = 10 * time.Second
)

// NoResultMessage is returned when neither tier yields an answer.
const NoResultMessage = "No relevant information found in external sources."

// Client queries the external knowledge APIs. The search API key is a
// configuration secret; an empty key disables the search tier.
type Client struct {
	httpClient   *http.Client
	serpAPIKey   string
	wikipediaURL string
	serpAPIURL   string
}

// NewClient creates a Client. The shared http.Client carries the longer of
// the two timeouts; the summary lookup gets a tighter per-request deadline.
func NewClient(serpAPIKey string) *Client {
	return &Client{
		httpClient:   &http.Client{Timeout: searchTimeout},
		serpAPIKey:   serpAPIKey,
		wikipediaURL: defaultWikipediaURL,
		serpAPIURL:   defaultSerpAPIURL,
	}
}

// Answer resolves the question through the fallback tiers and always returns
// a displayable string.
func (c *Client) Answer(ctx context.Context, question string) string {
	topic := ExtractTopic(question)
	if topic == "" {
		return "Please enter a valid question."
	}

	if summary, ok := c.wikipediaSummary(ctx, topic); ok {
		return "Source: Wikipedia\n\n" + summary
	}
	if snippet, ok := c.searchSnippet(ctx, question); ok {
		return "Source: Web search\n\n" + snippet
	}
	return NoResultMessage
}

// ExtractTopic picks the single most distinctive keyword from the question:
// the longest word over 3 characters, else the last keyword; title-cased
// with spaces joined by underscores.
func ExtractTopic(question string) string {
	var keywords []string
	var current strings.Builder
	flush := func() {
		if current.Len() > 0 {
			keywords = append(keywords, current.String())
			current.Reset()
		}
	}
	for _, r := range question {
		if (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') {
			current.WriteRune(r)
		} else {
			flush()
		}
	}
	flush()
	if len(keywords) == 0 {
		return ""
	}

	topic := keywords[len(keywords)-1]
	best := 0
	for _, w := range keywords {
		if len(w) > 3 && len(w) >= best {
			best = len(w)
			topic = w
		}
	}

	topic = strings.ToLower(topic)
	topic = strings.ToUpper(topic[:1]) + topic[1:]
	return strings.ReplaceAll(topic, " ", "_")
}

type wikipediaResponse struct {
	Extract string `json:"extract"`
}

func (c *Client) wikipediaSummary(ctx context.Context, topic string) (string, bool) {
	ctx, cancel := context.WithTimeout(ctx, lookupTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.wikipediaURL+url.PathEscape(topic), nil)
	if err != nil {
		return "", false
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", false
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", false
	}

	var parsed wikipediaResponse
	if err := json.NewDecoder(io.LimitReader(resp.Body, 1<<20)).Decode(&parsed); err != nil {
		return "", false
	}
	if parsed.Extract == "" {
		return "", false
	}
	return parsed.Extract, true
}

type serpAPIResponse struct {
	OrganicResults []struct {
		Snippet string `json:"snippet"`
	} `json:"organic_results"`
}

func (c *Client) searchSnippet(ctx context.Context, question string) (string, bool) {
	if c.serpAPIKey == "" {
		return "", false
	}

	ctx, cancel := context.WithTimeout(ctx, searchTimeout)
	defer cancel()

	params := url.Values{}
	params.Set("q", question)
	params.Set("engine", "google")
	params.Set("api_key", c.serpAPIKey)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.serpAPIURL+"?"+params.Encode(), nil)
	if err != nil {
		return "", false
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", false
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", false
	}

	var parsed serpAPIResponse
	if err := json.NewDecoder(io.LimitReader(resp.Body, 1<<20)).Decode(&parsed); err != nil {
		return "", false
	}
	if len(parsed.OrganicResults) == 0 || parsed.OrganicResults[0].Snippet == "" {
		return "", false
	}
	return parsed.OrganicResults[0].Snippet, true
}
