package blobstore

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"slices"
	"strings"
	"time"
)

// PathStore keeps blobs in a pathstore HTTP KV service. Each blob is one
// node whose value carries the original path and the content.
type PathStore struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

func NewPathStore(baseURL, apiKey string) *PathStore {
	return &PathStore{
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// nodeRequest is the body for PUT /kv/{key}.
type nodeRequest struct {
	Value      blobValue `json:"value"`
	MergeMode  string    `json:"merge_mode,omitempty"`
	MemoryType string    `json:"memory_type,omitempty"`
	Source     string    `json:"source,omitempty"`
}

type blobValue struct {
	Path    string `json:"path"`
	Content string `json:"content"`
}

// nodeResponse is the response from GET /kv/{key} and one entry of a
// prefix scan.
type nodeResponse struct {
	Key   string    `json:"key_path"`
	Value blobValue `json:"value"`
}

// nodeKey maps a blob key onto a pathstore key. Pathstore treats dots as
// separators, so they are replaced inside the final path.
func nodeKey(k Key) string {
	return "sessiondata/" + k.User + "/" + k.Task + "/" + strings.ReplaceAll(k.Path, ".", "_")
}

func (p *PathStore) Put(ctx context.Context, k Key, data []byte) error {
	if err := k.Validate(); err != nil {
		return err
	}
	body, err := json.Marshal(nodeRequest{
		Value:      blobValue{Path: k.Path, Content: string(data)},
		MergeMode:  "replace",
		MemoryType: "working",
		Source:     "draftlens:" + k.Task,
	})
	if err != nil {
		return fmt.Errorf("marshal node: %w", err)
	}
	key := nodeKey(k)
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPut, p.baseURL+"/kv/"+key, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+p.apiKey)

	resp, err := p.httpClient.Do(httpReq)
	if err != nil {
		return fmt.Errorf("put node: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return fmt.Errorf("put node %s: status %d: %s", key, resp.StatusCode, string(respBody))
	}
	return nil
}

func (p *PathStore) Get(ctx context.Context, k Key) ([]byte, error) {
	if err := k.Validate(); err != nil {
		return nil, err
	}
	key := nodeKey(k)
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, p.baseURL+"/kv/"+key, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	httpReq.Header.Set("Authorization", "Bearer "+p.apiKey)

	resp, err := p.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("get node: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode == http.StatusNotFound {
		return nil, ErrNotFound
	}
	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return nil, fmt.Errorf("get node %s: status %d: %s", key, resp.StatusCode, string(respBody))
	}

	var node nodeResponse
	if err := json.NewDecoder(resp.Body).Decode(&node); err != nil {
		return nil, fmt.Errorf("decode node: %w", err)
	}
	return []byte(node.Value.Content), nil
}

// List does a prefix scan under the task's dir.
func (p *PathStore) List(ctx context.Context, user, task, dir string) ([]string, error) {
	prefix := nodeKey(Key{User: user, Task: task, Path: strings.TrimSuffix(dir, "/")})
	u := p.baseURL + "/kv/" + prefix + "/*?limit=" + url.QueryEscape("1000")
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	httpReq.Header.Set("Authorization", "Bearer "+p.apiKey)

	resp, err := p.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("list children: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return nil, fmt.Errorf("list children %s: status %d: %s", prefix, resp.StatusCode, string(respBody))
	}

	var result struct {
		Nodes []nodeResponse `json:"nodes"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("decode children: %w", err)
	}
	var out []string
	for _, n := range result.Nodes {
		if childOf(n.Value.Path, dir) {
			out = append(out, n.Value.Path)
		}
	}
	slices.Sort(out)
	return out, nil
}

// Close releases idle connections.
func (p *PathStore) Close() error {
	p.httpClient.CloseIdleConnections()
	return nil
}
