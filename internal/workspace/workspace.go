// Package workspace is a client for the SEED Workspace object store. Objects
// live at paths like /user@patricbrc.org/modelseed/name and carry a twelve
// element metadata tuple.
package workspace

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sort"
	"strings"
	"time"

	"seedtools/internal/seedrpc"
)

// DefaultURL is the production Workspace service endpoint.
const DefaultURL = "https://p3.theseed.org/services/Workspace"

// ObjectMeta describes one workspace object. The service transmits it as a
// positional twelve element array.
type ObjectMeta struct {
	Name             string
	Type             string
	Path             string
	Created          string
	ID               string
	Owner            string
	Size             int64
	UserMeta         map[string]interface{}
	AutoMeta         map[string]interface{}
	UserPermission   string
	GlobalPermission string
	ShockURL         string
}

// Ref returns the full workspace reference of the object.
func (m *ObjectMeta) Ref() string { return m.Path + m.Name }

// IsFolder reports whether the object is a folder or model folder.
func (m *ObjectMeta) IsFolder() bool {
	return m.Type == "folder" || m.Type == "modelfolder"
}

// UnmarshalJSON decodes the positional metadata array. Missing trailing
// elements are tolerated; the services omit the shock URL for objects stored
// inline.
func (m *ObjectMeta) UnmarshalJSON(data []byte) error {
	var tuple []json.RawMessage
	if err := json.Unmarshal(data, &tuple); err != nil {
		return fmt.Errorf("object metadata is not an array: %w", err)
	}
	if len(tuple) < 11 {
		return fmt.Errorf("object metadata has %d elements, expected at least 11", len(tuple))
	}
	strFields := []*string{&m.Name, &m.Type, &m.Path, &m.Created, &m.ID, &m.Owner}
	for i, field := range strFields {
		if err := json.Unmarshal(tuple[i], field); err != nil {
			return fmt.Errorf("object metadata element %d: %w", i, err)
		}
	}
	// Size arrives as a number or a numeric string depending on the service.
	if err := json.Unmarshal(tuple[6], &m.Size); err != nil {
		var s string
		if err := json.Unmarshal(tuple[6], &s); err != nil {
			return fmt.Errorf("object metadata size: %w", err)
		}
		fmt.Sscan(s, &m.Size)
	}
	for i, field := range []*map[string]interface{}{&m.UserMeta, &m.AutoMeta} {
		if err := json.Unmarshal(tuple[7+i], field); err != nil {
			// Empty metadata is sometimes sent as an empty array.
			*field = map[string]interface{}{}
		}
	}
	if err := json.Unmarshal(tuple[9], &m.UserPermission); err != nil {
		return fmt.Errorf("object metadata user permission: %w", err)
	}
	if err := json.Unmarshal(tuple[10], &m.GlobalPermission); err != nil {
		return fmt.Errorf("object metadata global permission: %w", err)
	}
	if len(tuple) > 11 {
		json.Unmarshal(tuple[11], &m.ShockURL)
	}
	return nil
}

// Client wraps the Workspace service RPC interface.
type Client struct {
	RPC *seedrpc.Client

	// ShockClient downloads objects stored in Shock nodes; tests may replace
	// it. When nil, a client with a 30 minute timeout is used.
	ShockClient *http.Client
}

// NewClient creates a workspace client for the endpoint. An empty url selects
// the production service.
func NewClient(url, token string) *Client {
	if url == "" {
		url = DefaultURL
	}
	return &Client{RPC: seedrpc.NewClient(url, "Workspace", token)}
}

// MakeModelRefs returns the candidate workspace references for a model ID:
// the modelseed folder used by the ModelSEED web interface and the hidden
// folder under home/models used by the PATRIC web interface.
func (c *Client) MakeModelRefs(id string) []string {
	user := c.RPC.Username
	return []string{
		fmt.Sprintf("/%s/modelseed/%s", user, id),
		fmt.Sprintf("/%s/home/models/.%s", user, id),
	}
}

// GetMeta returns the metadata for the object at the reference without
// retrieving its data.
func (c *Client) GetMeta(ctx context.Context, ref string) (*ObjectMeta, error) {
	raw, err := c.RPC.Call(ctx, "get", map[string]interface{}{
		"objects":       []string{ref},
		"metadata_only": 1,
	})
	if err != nil {
		return nil, seedrpc.TranslateError(err, ref)
	}
	var pairs [][]json.RawMessage
	if err := json.Unmarshal(raw, &pairs); err != nil || len(pairs) == 0 || len(pairs[0]) == 0 {
		return nil, fmt.Errorf("get %s: unexpected response shape", ref)
	}
	var meta ObjectMeta
	if err := json.Unmarshal(pairs[0][0], &meta); err != nil {
		return nil, fmt.Errorf("get %s: %w", ref, err)
	}
	return &meta, nil
}

// GetData retrieves the object at the reference and returns its raw data.
// Objects stored in Shock are downloaded from their node.
func (c *Client) GetData(ctx context.Context, ref string) ([]byte, error) {
	raw, err := c.RPC.Call(ctx, "get", map[string]interface{}{"objects": []string{ref}})
	if err != nil {
		return nil, seedrpc.TranslateError(err, ref)
	}
	var pairs [][]json.RawMessage
	if err := json.Unmarshal(raw, &pairs); err != nil || len(pairs) == 0 || len(pairs[0]) < 2 {
		return nil, fmt.Errorf("get %s: unexpected response shape", ref)
	}
	var meta ObjectMeta
	if err := json.Unmarshal(pairs[0][0], &meta); err != nil {
		return nil, fmt.Errorf("get %s: %w", ref, err)
	}
	var data string
	if err := json.Unmarshal(pairs[0][1], &data); err != nil {
		// Some objects come back as inline JSON rather than a string.
		return pairs[0][1], nil
	}
	if data == "" && meta.ShockURL != "" {
		return c.downloadShock(ctx, meta.ShockURL)
	}
	return []byte(data), nil
}

// GetJSON retrieves the object at the reference and decodes its data into v.
func (c *Client) GetJSON(ctx context.Context, ref string, v interface{}) error {
	data, err := c.GetData(ctx, ref)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("decode %s: %w", ref, err)
	}
	return nil
}

func (c *Client) downloadShock(ctx context.Context, nodeURL string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, nodeURL+"?download", nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "OAuth "+c.RPC.Token)
	client := c.ShockClient
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Minute}
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("download shock node: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("download shock node %s: status %d", nodeURL, resp.StatusCode)
	}
	return io.ReadAll(resp.Body)
}

// List returns the metadata of every object in the folder at the reference,
// sorted by name.
func (c *Client) List(ctx context.Context, ref string) ([]ObjectMeta, error) {
	ref = strings.TrimRight(ref, "/")
	raw, err := c.RPC.Call(ctx, "ls", map[string]interface{}{"paths": []string{ref}})
	if err != nil {
		return nil, seedrpc.TranslateError(err, ref)
	}
	var byPath map[string][]ObjectMeta
	if err := json.Unmarshal(raw, &byPath); err != nil {
		return nil, fmt.Errorf("ls %s: %w", ref, err)
	}
	objects, ok := byPath[ref]
	if !ok {
		return nil, &seedrpc.ObjectNotFoundError{
			Message: fmt.Sprintf("an object was not found in workspace: %q", ref),
		}
	}
	sort.Slice(objects, func(i, j int) bool { return objects[i].Name < objects[j].Name })
	return objects, nil
}

// Put stores data as an object of the given type at the reference,
// overwriting any existing object.
func (c *Client) Put(ctx context.Context, ref, objectType string, data interface{}) (*ObjectMeta, error) {
	raw, err := c.RPC.Call(ctx, "create", map[string]interface{}{
		"objects":   [][]interface{}{{ref, objectType, map[string]interface{}{}, data}},
		"overwrite": 1,
	})
	if err != nil {
		return nil, seedrpc.TranslateError(err, ref)
	}
	var metas []ObjectMeta
	if err := json.Unmarshal(raw, &metas); err != nil || len(metas) == 0 {
		return nil, fmt.Errorf("create %s: unexpected response shape", ref)
	}
	return &metas[0], nil
}

// MakeFolder creates a folder at the reference. Existing folders are left in
// place.
func (c *Client) MakeFolder(ctx context.Context, ref string) error {
	_, err := c.RPC.Call(ctx, "create", map[string]interface{}{
		"objects": [][]interface{}{{ref, "folder"}},
	})
	if err != nil {
		se, ok := err.(*seedrpc.ServerError)
		if ok && strings.Contains(se.Message, "already has object") {
			return nil
		}
		return seedrpc.TranslateError(err, ref)
	}
	return nil
}

// Delete removes the object at the reference. Folders are deleted with their
// contents.
func (c *Client) Delete(ctx context.Context, ref string, force bool) error {
	params := map[string]interface{}{"objects": []string{ref}}
	if force {
		params["force"] = 1
		params["deleteDirectories"] = 1
	}
	if _, err := c.RPC.Call(ctx, "delete", params); err != nil {
		return seedrpc.TranslateError(err, ref)
	}
	return nil
}
