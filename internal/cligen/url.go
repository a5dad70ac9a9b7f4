package cligen

import (
	"fmt"
	"net/url"
	"strings"
)

func extractPathParams(path string) []string {
	var out []string
	for i := 0; i < len(path); i++ {
		if path[i] != '{' {
			continue
		}
		j := strings.IndexByte(path[i:], '}')
		if j <= 1 {
			continue
		}
		name := path[i+1 : i+j]
		out = append(out, name)
		i = i + j
	}
	return out
}

// expandPath substitutes escaped values for the {name} placeholders of path.
func expandPath(path string, values map[string]string) string {
	for name, v := range values {
		path = strings.ReplaceAll(path, "{"+name+"}", url.PathEscape(v))
	}
	return path
}

func joinBaseAndPath(baseURL string, path string) (string, error) {
	if baseURL == "" {
		return "", fmt.Errorf("empty base url")
	}
	if !strings.Contains(baseURL, "://") {
		baseURL = "https://" + strings.TrimLeft(baseURL, "/")
	}
	u, err := url.Parse(baseURL)
	if err != nil {
		return "", err
	}
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	u.Path = strings.TrimRight(u.Path, "/") + path
	return u.String(), nil
}
