// SPDX-License-Identifier: MPL-2.0

package registry

import (
	"context"
	"fmt"
	"io"
	"net/url"
	"slices"
	"strconv"
	"time"

	"golang.org/x/mod/semver"
)

const (
	// PackKeyword is the crates.io keyword every battery pack publishes under.
	PackKeyword = "battery-pack"

	searchPageSize = 50
)

type (
	// Crate is the registry's view of one crate.
	Crate struct {
		Name          string
		Description   string
		Repository    string
		Documentation string
		MaxVersion    string
		Keywords      []string
		Downloads     int
		Versions      []Version
	}

	// Version is one published version of a crate.
	Version struct {
		Num       string
		Checksum  string
		Yanked    bool
		License   string
		CreatedAt time.Time
		CrateSize int
	}

	// SearchResult is one hit of a crate search.
	SearchResult struct {
		Name        string
		Description string
		MaxVersion  string
		Downloads   int
	}

	// Owner is a user that may publish a crate.
	Owner struct {
		Login string
		Name  string
		URL   string
	}

	crateResponse struct {
		Crate    crateInfo     `json:"crate"`
		Versions []versionInfo `json:"versions"`
	}

	crateInfo struct {
		ID               string   `json:"id"`
		Name             string   `json:"name"`
		Description      string   `json:"description"`
		Repository       string   `json:"repository"`
		Documentation    string   `json:"documentation"`
		MaxVersion       string   `json:"max_version"`
		MaxStableVersion string   `json:"max_stable_version"`
		Keywords         []string `json:"keywords"`
		Downloads        int      `json:"downloads"`
	}

	versionInfo struct {
		Num       string `json:"num"`
		Checksum  string `json:"checksum"`
		Yanked    bool   `json:"yanked"`
		License   string `json:"license"`
		CreatedAt string `json:"created_at"`
		CrateSize int    `json:"crate_size"`
	}

	searchResponse struct {
		Crates []crateInfo `json:"crates"`
		Meta   struct {
			Total int `json:"total"`
		} `json:"meta"`
	}

	ownersResponse struct {
		Users []struct {
			Login string `json:"login"`
			Name  string `json:"name"`
			URL   string `json:"url"`
		} `json:"users"`
	}
)

// FetchCrate returns metadata and every published version of name, newest
// first. Versions that fail to parse as semver keep their registry order at
// the end.
func (c *Client) FetchCrate(ctx context.Context, name string) (*Crate, error) {
	reqURL := fmt.Sprintf("%s/api/v1/crates/%s", c.baseURL, url.PathEscape(name))

	var resp crateResponse
	if err := c.getJSON(ctx, reqURL, &resp); err != nil {
		return nil, fmt.Errorf("fetching crate %s: %w", name, err)
	}

	crate := &Crate{
		Name:          firstNonEmpty(resp.Crate.Name, resp.Crate.ID, name),
		Description:   resp.Crate.Description,
		Repository:    resp.Crate.Repository,
		Documentation: resp.Crate.Documentation,
		MaxVersion:    firstNonEmpty(resp.Crate.MaxStableVersion, resp.Crate.MaxVersion),
		Keywords:      resp.Crate.Keywords,
		Downloads:     resp.Crate.Downloads,
		Versions:      make([]Version, 0, len(resp.Versions)),
	}
	for _, v := range resp.Versions {
		created, _ := time.Parse(time.RFC3339, v.CreatedAt) //nolint:errcheck // Best-effort timestamp.
		crate.Versions = append(crate.Versions, Version{
			Num:       v.Num,
			Checksum:  v.Checksum,
			Yanked:    v.Yanked,
			License:   v.License,
			CreatedAt: created,
			CrateSize: v.CrateSize,
		})
	}
	slices.SortStableFunc(crate.Versions, func(a, b Version) int {
		return semver.Compare("v"+b.Num, "v"+a.Num)
	})
	return crate, nil
}

// Version returns the published version num of the crate, if any.
func (c *Crate) Version(num string) (Version, bool) {
	i := slices.IndexFunc(c.Versions, func(v Version) bool { return v.Num == num })
	if i < 0 {
		return Version{}, false
	}
	return c.Versions[i], true
}

// Available returns the non-yanked version numbers, newest first.
func (c *Crate) Available() []string {
	var out []string
	for _, v := range c.Versions {
		if !v.Yanked {
			out = append(out, v.Num)
		}
	}
	return out
}

// Search queries crates by free text. When packsOnly is set the search is
// restricted to crates tagged with PackKeyword.
func (c *Client) Search(ctx context.Context, query string, packsOnly bool) ([]SearchResult, error) {
	params := url.Values{}
	params.Set("q", query)
	params.Set("per_page", strconv.Itoa(searchPageSize))
	if packsOnly {
		params.Set("keyword", PackKeyword)
	}
	reqURL := fmt.Sprintf("%s/api/v1/crates?%s", c.baseURL, params.Encode())

	var resp searchResponse
	if err := c.getJSON(ctx, reqURL, &resp); err != nil {
		return nil, fmt.Errorf("searching %q: %w", query, err)
	}

	results := make([]SearchResult, 0, len(resp.Crates))
	for _, cr := range resp.Crates {
		results = append(results, SearchResult{
			Name:        firstNonEmpty(cr.Name, cr.ID),
			Description: cr.Description,
			MaxVersion:  firstNonEmpty(cr.MaxStableVersion, cr.MaxVersion),
			Downloads:   cr.Downloads,
		})
	}
	return results, nil
}

// Owners lists the users allowed to publish name.
func (c *Client) Owners(ctx context.Context, name string) ([]Owner, error) {
	reqURL := fmt.Sprintf("%s/api/v1/crates/%s/owner_user", c.baseURL, url.PathEscape(name))

	var resp ownersResponse
	if err := c.getJSON(ctx, reqURL, &resp); err != nil {
		return nil, fmt.Errorf("fetching owners of %s: %w", name, err)
	}

	owners := make([]Owner, 0, len(resp.Users))
	for _, u := range resp.Users {
		owners = append(owners, Owner(u))
	}
	return owners, nil
}

// DownloadURL returns the CDN location of a crate archive.
func (c *Client) DownloadURL(name, version string) string {
	n := url.PathEscape(name)
	return fmt.Sprintf("%s/%s/%s-%s.crate", c.cdnURL, n, n, url.PathEscape(version))
}

// Download streams the .crate archive of name@version. The caller must close
// the returned body.
func (c *Client) Download(ctx context.Context, name, version string) (io.ReadCloser, error) {
	resp, err := c.get(ctx, c.DownloadURL(name, version))
	if err != nil {
		return nil, fmt.Errorf("downloading %s@%s: %w", name, version, err)
	}
	return resp.Body, nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
