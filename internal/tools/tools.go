// Package tools declares the auxiliary operations a model may request
// before answering: web search, page fetch, and weather lookup.
package tools

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/openai/openai-go/v3"
)

// ErrConfigMissing marks a tool that cannot run because a required
// credential is absent. Unlike an execution failure it aborts the whole
// action instead of degrading to tool output text.
var ErrConfigMissing = errors.New("tool configuration missing")

const (
	maxResultBytes = 100_000
	fetchTimeout   = 30 * time.Second
)

// Config carries the externally provided settings tools need.
type Config struct {
	WeatherAPIKey string
	HTTPClient    *http.Client
}

func (c Config) client() *http.Client {
	if c.HTTPClient != nil {
		return c.HTTPClient
	}
	return &http.Client{Timeout: fetchTimeout}
}

// Definition describes one registered tool.
type Definition struct {
	Name        string
	Description string
	Parameters  openai.FunctionParameters
}

// Registry is the ordered set of available tools. A model configuration
// enables a subset by name.
var Registry = []Definition{
	{
		Name:        "search",
		Description: "Useful for search the web to retrieve real-time and accurate information",
		Parameters: openai.FunctionParameters{
			"type": "object",
			"properties": map[string]interface{}{
				"keywords": map[string]interface{}{
					"type":        "string",
					"description": "the keywords used for search engine to search the web",
				},
			},
			"required": []string{"keywords"},
		},
	},
	{
		Name:        "website",
		Description: "Fetch the content of a website by its url",
		Parameters: openai.FunctionParameters{
			"type": "object",
			"properties": map[string]interface{}{
				"url": map[string]interface{}{
					"type":        "string",
					"description": "the url of the website",
				},
			},
			"required": []string{"url"},
		},
	},
	{
		Name:        "get_current_weather",
		Description: "Get the current weather in a given location",
		Parameters: openai.FunctionParameters{
			"type": "object",
			"properties": map[string]interface{}{
				"location": map[string]interface{}{
					"type":        "string",
					"description": "The city and state english name, e.g. San Francisco",
				},
			},
			"required": []string{"location"},
		},
	},
}

// Names lists every registered tool name in registry order.
func Names() []string {
	names := make([]string, len(Registry))
	for i, d := range Registry {
		names[i] = d.Name
	}
	return names
}

// Schemas returns the request parameters for the enabled subset of the
// registry, preserving registry order.
func Schemas(enabled []string) []openai.ChatCompletionToolUnionParam {
	allowed := make(map[string]bool, len(enabled))
	for _, name := range enabled {
		allowed[name] = true
	}

	var params []openai.ChatCompletionToolUnionParam
	for _, d := range Registry {
		if !allowed[d.Name] {
			continue
		}
		params = append(params, openai.ChatCompletionFunctionTool(openai.FunctionDefinitionParam{
			Name:        d.Name,
			Description: openai.String(d.Description),
			Parameters:  d.Parameters,
		}))
	}
	return params
}

// Execute runs one tool by name with the model-provided JSON arguments.
func Execute(ctx context.Context, cfg Config, name, argsJSON string) (string, error) {
	var args map[string]interface{}
	if err := json.Unmarshal([]byte(argsJSON), &args); err != nil {
		return "", err
	}

	switch name {
	case "search":
		return toolSearch(ctx, cfg, args)
	case "website":
		return toolWebsite(ctx, cfg, args)
	case "get_current_weather":
		return toolWeather(ctx, cfg, args)
	default:
		return "", fmt.Errorf("unknown tool: %s", name)
	}
}

// Summary renders a short progress line for a dispatched tool call.
func Summary(name, argsJSON string) string {
	var args map[string]interface{}
	json.Unmarshal([]byte(argsJSON), &args)

	switch name {
	case "search":
		keywords, _ := args["keywords"].(string)
		return fmt.Sprintf("Searching the web for %q", keywords)
	case "website":
		u, _ := args["url"].(string)
		return fmt.Sprintf("Reading %s", u)
	case "get_current_weather":
		location, _ := args["location"].(string)
		return fmt.Sprintf("Checking the weather in %s", location)
	default:
		return fmt.Sprintf("Running %s", name)
	}
}

func toolSearch(ctx context.Context, cfg Config, args map[string]interface{}) (string, error) {
	keywords, _ := args["keywords"].(string)
	if keywords == "" {
		return "", fmt.Errorf("search: keywords required")
	}
	return fetchText(ctx, cfg, "https://s.jina.ai/"+url.PathEscape(keywords))
}

func toolWebsite(ctx context.Context, cfg Config, args map[string]interface{}) (string, error) {
	raw, _ := args["url"].(string)
	if raw == "" {
		return "", fmt.Errorf("website: url required")
	}
	return fetchText(ctx, cfg, "https://r.jina.ai/"+raw)
}

func toolWeather(ctx context.Context, cfg Config, args map[string]interface{}) (string, error) {
	if cfg.WeatherAPIKey == "" {
		return "", fmt.Errorf("%w: OpenWeatherMap API key is not set", ErrConfigMissing)
	}

	location, _ := args["location"].(string)
	endpoint := "https://api.openweathermap.org/data/2.5/weather?q=" + url.QueryEscape(location) + "&appid=" + url.QueryEscape(cfg.WeatherAPIKey)

	body, err := fetchText(ctx, cfg, endpoint)
	if err != nil {
		return "No data", nil
	}

	var payload struct {
		Main struct {
			Temp float64 `json:"temp"`
		} `json:"main"`
		Weather []struct {
			Description string `json:"description"`
		} `json:"weather"`
	}
	if err := json.Unmarshal([]byte(body), &payload); err != nil || len(payload.Weather) == 0 {
		return "No data", nil
	}

	celsius := payload.Main.Temp - 273.15
	return fmt.Sprintf("The weather in %s is %.1f°C, weather description is %s", location, celsius, payload.Weather[0].Description), nil
}

func fetchText(ctx context.Context, cfg Config, endpoint string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return "", err
	}

	resp, err := cfg.client().Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", fmt.Errorf("GET %s: status %d", endpoint, resp.StatusCode)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResultBytes))
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(data)), nil
}
