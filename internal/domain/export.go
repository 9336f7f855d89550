package domain

import (
	"fmt"
	"net/url"
	"path"
	"path/filepath"
	"strings"
	"time"
)

type RunStatus string

const (
	RunStatusRunning   RunStatus = "running"
	RunStatusSucceeded RunStatus = "succeeded"
	RunStatusFailed    RunStatus = "failed"
)

// ExportRun records one fetch-and-persist run.
type ExportRun struct {
	ID           string        `json:"id"`
	ViewID       string        `json:"view_id"`
	Destination  string        `json:"destination"`
	Status       RunStatus     `json:"status"`
	Pages        int           `json:"pages"`
	Rows         int           `json:"rows"`
	Columns      int           `json:"columns"`
	Bytes        int           `json:"bytes"`
	DecodeIssues int           `json:"decode_issues"`
	Error        string        `json:"error,omitempty"`
	StartedAt    time.Time     `json:"started_at"`
	FinishedAt   *time.Time    `json:"finished_at,omitempty"`
	Duration     time.Duration `json:"duration"`
}

// IsFinished returns true once the run has either succeeded or failed
func (r ExportRun) IsFinished() bool {
	return r.Status == RunStatusSucceeded || r.Status == RunStatusFailed
}

// represents filters for listing export runs
type ExportRunFilter struct {
	ViewID string    `json:"view_id,omitempty"`
	Status RunStatus `json:"status,omitempty"`
	Limit  int       `json:"limit,omitempty"`
	Offset int       `json:"offset,omitempty"`
}

// represents the API response for export run listings
type ExportRunList struct {
	Data    []ExportRun `json:"data"`
	Total   int         `json:"total"`
	Limit   int         `json:"limit"`
	Offset  int         `json:"offset"`
	HasMore bool        `json:"has_more"`
}

const (
	SchemeFile = "file"
	SchemeGCS  = "gs"
	SchemeS3   = "s3"
	SchemeHTTP = "http"
)

// Destination names where a result is persisted.
type Destination struct {
	Scheme string
	Bucket string
	Path   string
	URL    string
}

func (d Destination) String() string {
	switch d.Scheme {
	case SchemeGCS, SchemeS3:
		return d.Scheme + "://" + d.Bucket + "/" + d.Path
	case SchemeHTTP:
		return d.URL
	default:
		return d.Path
	}
}

// ParseDestination accepts gs://bucket/object, s3://bucket/key, http(s):// URLs and
// local paths (optionally prefixed with file://). Bucket object names are taken
// verbatim, so '#', '?' and '%' stay part of the name.
func ParseDestination(raw string) (Destination, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return Destination{}, fmt.Errorf("%w: empty destination", ErrUnsupportedDestination)
	}

	scheme, rest, found := strings.Cut(raw, "://")
	if !found {
		return Destination{Scheme: SchemeFile, Path: raw}, nil
	}

	switch strings.ToLower(scheme) {
	case "file":
		if rest == "" {
			return Destination{}, fmt.Errorf("%w: %s has no path", ErrUnsupportedDestination, raw)
		}
		return Destination{Scheme: SchemeFile, Path: rest}, nil
	case SchemeGCS, SchemeS3:
		bucket, object, _ := strings.Cut(rest, "/")
		if bucket == "" || object == "" {
			return Destination{}, fmt.Errorf("%w: %s needs a bucket and an object name", ErrUnsupportedDestination, raw)
		}
		return Destination{Scheme: strings.ToLower(scheme), Bucket: bucket, Path: object}, nil
	case "http", "https":
		u, err := url.Parse(raw)
		if err != nil {
			return Destination{}, fmt.Errorf("%w: %v", ErrUnsupportedDestination, err)
		}
		if u.Host == "" {
			return Destination{}, fmt.Errorf("%w: %s has no host", ErrUnsupportedDestination, raw)
		}
		return Destination{Scheme: SchemeHTTP, URL: raw}, nil
	default:
		return Destination{}, fmt.Errorf("%w: scheme %q", ErrUnsupportedDestination, scheme)
	}
}

// OutputPolicy lists the destinations a run request may pick instead of the
// configured output. Each prefix is a local directory, a gs:// or s3:// bucket
// (optionally with a key prefix) or an http(s) URL prefix. The zero policy allows
// no overrides.
type OutputPolicy struct {
	prefixes []string
}

func NewOutputPolicy(prefixes []string) OutputPolicy {
	var kept []string
	for _, p := range prefixes {
		if p = strings.TrimSpace(p); p != "" {
			kept = append(kept, p)
		}
	}
	return OutputPolicy{prefixes: kept}
}

func (p OutputPolicy) Prefixes() []string {
	return p.prefixes
}

// Allows reports whether d falls under one of the policy's prefixes.
func (p OutputPolicy) Allows(d Destination) bool {
	for _, prefix := range p.prefixes {
		if withinPrefix(d, prefix) {
			return true
		}
	}
	return false
}

func withinPrefix(d Destination, prefix string) bool {
	scheme, rest, found := strings.Cut(prefix, "://")
	if !found {
		scheme, rest = "file", prefix
	}

	switch strings.ToLower(scheme) {
	case "file":
		if d.Scheme != SchemeFile {
			return false
		}
		base, err := filepath.Abs(rest)
		if err != nil {
			return false
		}
		target, err := filepath.Abs(d.Path)
		if err != nil {
			return false
		}
		rel, err := filepath.Rel(base, target)
		return err == nil && rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator))
	case SchemeGCS, SchemeS3:
		if d.Scheme != strings.ToLower(scheme) {
			return false
		}
		bucket, keyPrefix, _ := strings.Cut(rest, "/")
		return d.Bucket == bucket && underPath(d.Path, keyPrefix)
	case "http", "https":
		if d.Scheme != SchemeHTTP {
			return false
		}
		target, err := url.Parse(d.URL)
		if err != nil {
			return false
		}
		allowed, err := url.Parse(prefix)
		if err != nil {
			return false
		}
		if target.User != nil || !strings.EqualFold(target.Scheme, allowed.Scheme) || !strings.EqualFold(target.Host, allowed.Host) {
			return false
		}
		return underPath(path.Clean("/"+target.Path), path.Clean("/"+allowed.Path))
	default:
		return false
	}
}

// underPath matches whole segments: "exports" covers "exports/a.csv" but not "exports2.csv".
func underPath(name, prefix string) bool {
	prefix = strings.Trim(prefix, "/")
	name = strings.TrimPrefix(name, "/")
	if prefix == "" {
		return true
	}
	return name == prefix || strings.HasPrefix(name, prefix+"/")
}
