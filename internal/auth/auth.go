// Package auth obtains and stores authentication tokens for SEED web
// services. Tokens are cached in ~/.patric_config so the user does not need
// to log in for every session.
package auth

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"seedtools/internal/seedrpc"
)

// Authentication endpoints.
const (
	patricAuthURL = "https://user.patricbrc.org/authenticate"
	rastAuthURL   = "http://rast.nmpdr.org/goauth/token?grant_type=client_credentials&client_id=%s"
)

// TokenFileName is the name of the token file in the user's home directory.
const TokenFileName = ".patric_config"

// httpClient performs requests; tests may replace it with a mock transport.
var httpClient = &http.Client{Timeout: 30 * time.Second}

// Credentials is an authentication token with the user ID it belongs to.
type Credentials struct {
	Token  string
	UserID string
}

// GetToken requests an authentication token from the specified service and
// stores it in the token file. tokenType is "patric" or "rast". The returned
// user ID can differ from the user name.
func GetToken(ctx context.Context, username, password, tokenType string) (Credentials, error) {
	var creds Credentials
	var err error
	switch tokenType {
	case "patric":
		creds, err = patricToken(ctx, username, password)
	case "rast":
		creds, err = rastToken(ctx, username, password)
	default:
		return Credentials{}, fmt.Errorf("token type %s is not valid", tokenType)
	}
	if err != nil {
		return Credentials{}, err
	}
	if err := SaveToken(creds, ""); err != nil {
		return Credentials{}, err
	}
	return creds, nil
}

func patricToken(ctx context.Context, username, password string) (Credentials, error) {
	form := url.Values{}
	form.Set("username", username)
	form.Set("password", password)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, patricAuthURL,
		strings.NewReader(form.Encode()))
	if err != nil {
		return Credentials{}, err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	resp, err := httpClient.Do(req)
	if err != nil {
		return Credentials{}, err
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)
	if resp.StatusCode != http.StatusOK {
		return Credentials{}, fmt.Errorf("authentication failed: %s: %s", resp.Status, strings.TrimSpace(string(body)))
	}
	token := strings.TrimSpace(string(body))
	return Credentials{Token: token, UserID: seedrpc.UsernameFromToken(token)}, nil
}

func rastToken(ctx context.Context, username, password string) (Credentials, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fmt.Sprintf(rastAuthURL, username), nil)
	if err != nil {
		return Credentials{}, err
	}
	req.Header.Set("Content-Type", "application/json")
	basic := base64.URLEncoding.EncodeToString([]byte(username + ":" + password))
	req.Header.Set("Authorization", "Basic "+basic)
	resp, err := httpClient.Do(req)
	if err != nil {
		return Credentials{}, err
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)
	if resp.StatusCode != http.StatusOK {
		return Credentials{}, fmt.Errorf("authentication failed: %s: %s", resp.Status, strings.TrimSpace(string(body)))
	}
	var out struct {
		AccessToken string `json:"access_token"`
		ClientID    string `json:"client_id"`
	}
	if err := json.Unmarshal(body, &out); err != nil {
		return Credentials{}, fmt.Errorf("parse authentication response: %w", err)
	}
	return Credentials{Token: out.AccessToken, UserID: out.ClientID}, nil
}

// TokenFilePath returns the path to the token file. When override is empty
// the file lives in the user's home directory.
func TokenFilePath(override string) (string, error) {
	if override != "" {
		return override, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, TokenFileName), nil
}

// LoadToken reads the stored credentials from the token file. path may be
// empty to use the default location.
func LoadToken(path string) (Credentials, error) {
	filename, err := TokenFilePath(path)
	if err != nil {
		return Credentials{}, err
	}
	data, err := os.ReadFile(filename)
	if err != nil {
		return Credentials{}, &seedrpc.AuthenticationError{
			Message: "no stored token, log in to obtain an authentication token",
		}
	}
	section := parseConfigSection(string(data), "authentication")
	creds := Credentials{Token: section["token"], UserID: section["user_id"]}
	if creds.Token == "" {
		return Credentials{}, &seedrpc.AuthenticationError{
			Message: "token file has no authentication section, log in to obtain a token",
		}
	}
	return creds, nil
}

// SaveToken writes the credentials to the token file, preserving any other
// sections already in the file. path may be empty to use the default
// location.
func SaveToken(creds Credentials, path string) error {
	filename, err := TokenFilePath(path)
	if err != nil {
		return err
	}
	var lines []string
	if data, err := os.ReadFile(filename); err == nil {
		lines = stripSection(string(data), "authentication")
	}
	lines = append(lines,
		"[authentication]",
		"token = "+creds.Token,
		"user_id = "+creds.UserID,
	)
	return os.WriteFile(filename, []byte(strings.Join(lines, "\n")+"\n"), 0o600)
}

// parseConfigSection extracts key = value pairs from one section of an INI
// style file. The token file uses the same layout the original PATRIC tools
// write, so the format is fixed here rather than configurable.
func parseConfigSection(data, section string) map[string]string {
	values := make(map[string]string)
	inSection := false
	for _, line := range strings.Split(data, "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") || strings.HasPrefix(line, ";") {
			continue
		}
		if strings.HasPrefix(line, "[") && strings.HasSuffix(line, "]") {
			inSection = line[1:len(line)-1] == section
			continue
		}
		if !inSection {
			continue
		}
		if key, value, ok := strings.Cut(line, "="); ok {
			values[strings.TrimSpace(key)] = strings.TrimSpace(value)
		}
	}
	return values
}

// stripSection returns the file lines with the named section removed.
func stripSection(data, section string) []string {
	var lines []string
	skipping := false
	for _, line := range strings.Split(strings.TrimRight(data, "\n"), "\n") {
		trimmed := strings.TrimSpace(line)
		if strings.HasPrefix(trimmed, "[") && strings.HasSuffix(trimmed, "]") {
			skipping = trimmed[1:len(trimmed)-1] == section
			if skipping {
				continue
			}
		}
		if !skipping {
			lines = append(lines, line)
		}
	}
	return lines
}
