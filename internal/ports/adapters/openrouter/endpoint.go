package openrouter

import (
	"fmt"
	"net/url"
	"slices"
	"strings"
)

const defaultBaseURL = "https://openrouter.ai"

var defaultHosts = []string{"openrouter.ai", "api.openrouter.ai"}

// ResolveEndpoint checks a configured llm.base_url and returns it without
// trailing slashes. An empty value resolves to the public endpoint. Only
// https URLs whose host is listed in allowedHosts (or the OpenRouter hosts
// when the list is empty) are accepted, so an API key is never sent to an
// arbitrary server.
func ResolveEndpoint(raw string, allowedHosts []string) (string, error) {
	raw = strings.TrimRight(strings.TrimSpace(raw), "/")
	if raw == "" {
		return defaultBaseURL, nil
	}

	u, err := url.Parse(raw)
	if err != nil {
		return "", fmt.Errorf("llm.base_url: %w", err)
	}
	switch {
	case !u.IsAbs() || u.Hostname() == "":
		return "", endpointError(raw, "absolute URL with host is required")
	case u.User != nil:
		return "", endpointError(raw, "userinfo is not allowed")
	case u.RawQuery != "" || u.Fragment != "" || u.ForceQuery:
		return "", endpointError(raw, "query and fragment are not allowed")
	case !strings.EqualFold(u.Scheme, "https"):
		return "", endpointError(raw, "https is required")
	}

	host := strings.ToLower(u.Hostname())
	if !slices.Contains(hostList(allowedHosts), host) {
		return "", endpointError(raw, fmt.Sprintf("host %q is not in llm.allowed_hosts", host))
	}
	return raw, nil
}

func endpointError(raw, reason string) error {
	return fmt.Errorf("llm.base_url %q: %s", raw, reason)
}

// hostList reduces entries such as "https://proxy.local:8443/" to bare
// lowercase host names.
func hostList(entries []string) []string {
	var out []string
	for _, e := range entries {
		h := strings.ToLower(strings.TrimSpace(e))
		h = strings.TrimPrefix(h, "https://")
		h = strings.TrimPrefix(h, "http://")
		h, _, _ = strings.Cut(strings.Trim(h, "/"), "/")
		if i := strings.LastIndex(h, ":"); i >= 0 && !strings.HasSuffix(h, "]") {
			h = h[:i]
		}
		if h != "" {
			out = append(out, h)
		}
	}
	if len(out) == 0 {
		return defaultHosts
	}
	return out
}
