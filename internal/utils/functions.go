package utils

import (
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"path"
	"strconv"
	"strings"
)

type Protocol int

const (
	HTTP Protocol = iota
	HTTPS
)

func (p Protocol) String() string {
	if p == HTTPS {
		return "https"
	}
	return "http"
}

func ProtocolOf(link string) (Protocol, error) {
	parsed, err := url.Parse(link)
	if err != nil {
		return HTTP, fmt.Errorf("cannot extract the protocol from %q: %w", link, err)
	}
	switch strings.ToLower(parsed.Scheme) {
	case "http":
		return HTTP, nil
	case "https":
		return HTTPS, nil
	}
	return HTTP, fmt.Errorf("%w: %q", ErrUnsupportedProtocol, parsed.Scheme)
}

// MirrorCandidates splits link into its parent location and resource name.
// The parent is always the first candidate, followed by extra mirrors.
func MirrorCandidates(link string, mirrors []string) ([]string, string, error) {
	parsed, err := url.Parse(link)
	if err != nil {
		return nil, "", fmt.Errorf("invalid URL: %w", err)
	}
	resource := path.Base(parsed.Path)
	if strings.HasSuffix(parsed.Path, "/") || resource == "." || resource == "/" || resource == "" {
		return nil, "", errors.New("the URL does not name a file")
	}
	parent := *parsed
	parent.Path = path.Dir(parsed.Path)
	parent.RawPath = ""
	parent.RawQuery = ""
	parent.Fragment = ""
	candidates := []string{strings.TrimSuffix(parent.String(), "/")}
	for _, mirror := range mirrors {
		mirror = strings.TrimSpace(mirror)
		if mirror != "" {
			candidates = append(candidates, strings.TrimSuffix(mirror, "/"))
		}
	}
	return candidates, resource, nil
}

func JoinURL(base, resource string) (string, error) {
	return url.JoinPath(base, resource)
}

// ContentLength reads the Content-Length header of resp.
func ContentLength(resp *http.Response) (uint64, bool) {
	value := resp.Header.Get("Content-Length")
	if value == "" {
		return 0, false
	}
	size, err := strconv.ParseUint(strings.TrimSpace(value), 10, 64)
	if err != nil {
		return 0, false
	}
	return size, true
}

func ParseHeaderArgs(headers []string) map[string]string {
	result := make(map[string]string)
	for _, header := range headers {
		parts := strings.SplitN(header, ":", 2)
		if len(parts) == 2 {
			key := strings.TrimSpace(parts[0])
			value := strings.TrimSpace(parts[1])
			result[key] = value
		}
	}
	return result
}

func FormatBytes(bytes uint64) string {
	const unit = 1024
	if bytes < unit {
		return fmt.Sprintf("%d B", bytes)
	}
	div, exp := uint64(unit), 0
	for n := bytes / unit; n >= unit; n /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.2f %cB", float64(bytes)/float64(div), "KMGTPE"[exp])
}

func FormatSpeed(bytes int64, elapsed float64) string {
	if elapsed == 0 {
		return "0 B/s"
	}
	bps := float64(bytes) / elapsed
	formatted := FormatBytes(uint64(bps))
	return formatted[:len(formatted)-1] + "B/s" // Slice off "B" and add "B/s"
}

// ParseBytes reads a human-readable size such as "512", "64K", "1.5MB" or
// "2GiB". Units are powers of 1024, matching FormatBytes.
func ParseBytes(value string) (int64, error) {
	s := strings.ToUpper(strings.TrimSpace(value))
	s = strings.TrimSuffix(strings.TrimSuffix(s, "/S"), "B")
	s = strings.TrimSuffix(s, "I")
	multiplier := int64(1)
	if n := len(s); n > 0 {
		if exp := strings.IndexByte("KMGT", s[n-1]); exp >= 0 {
			multiplier = int64(1) << (10 * (exp + 1))
			s = s[:n-1]
		}
	}
	number, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil || number < 0 {
		return 0, fmt.Errorf("invalid size %q", value)
	}
	return int64(number * float64(multiplier)), nil
}
