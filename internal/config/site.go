package config

import (
	"maps"
	"slices"
	"strings"
)

// SiteConfig holds crawl settings for a single host.
type SiteConfig struct {
	// Cookie is an HTTP cookie sent to this site.
	// Format: "name=value" or "name1=value1; name2=value2"
	Cookie string `yaml:"cookie,omitempty"`

	// Headers are custom HTTP headers sent to this site.
	Headers map[string]string `yaml:"headers,omitempty"`

	// MaxPages overrides the global page cap when non-zero.
	MaxPages int `yaml:"maxPages,omitempty"`

	// IgnorePatterns are URL patterns never enqueued.
	IgnorePatterns []string `yaml:"ignorePatterns,omitempty"`

	// FollowPatterns, when set, restrict enqueued URLs to matching ones.
	FollowPatterns []string `yaml:"followPatterns,omitempty"`
}

// GetSiteConfig returns the configuration for host merged over the
// defaults. Hosts are matched case-insensitively, with or without a port.
func (f *File) GetSiteConfig(host string) SiteConfig {
	result := f.Defaults
	result.Headers = maps.Clone(f.Defaults.Headers)
	result.IgnorePatterns = slices.Clone(f.Defaults.IgnorePatterns)
	result.FollowPatterns = slices.Clone(f.Defaults.FollowPatterns)

	site, ok := f.lookup(host)
	if !ok {
		return result
	}

	if site.Cookie != "" {
		result.Cookie = site.Cookie
	}
	if site.MaxPages != 0 {
		result.MaxPages = site.MaxPages
	}
	if len(site.Headers) > 0 {
		if result.Headers == nil {
			result.Headers = make(map[string]string, len(site.Headers))
		}
		maps.Copy(result.Headers, site.Headers)
	}
	if len(site.IgnorePatterns) > 0 {
		result.IgnorePatterns = slices.Clone(site.IgnorePatterns)
	}
	if len(site.FollowPatterns) > 0 {
		result.FollowPatterns = slices.Clone(site.FollowPatterns)
	}
	return result
}

func (f *File) lookup(host string) (SiteConfig, bool) {
	host = strings.ToLower(host)
	if site, ok := f.Sites[host]; ok {
		return site, true
	}
	for key, site := range f.Sites {
		if strings.EqualFold(key, host) {
			return site, true
		}
	}
	if i := strings.LastIndexByte(host, ':'); i > 0 && !strings.HasSuffix(host, "]") {
		return f.lookup(host[:i])
	}
	return SiteConfig{}, false
}
