package merlot

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/cenkalti/backoff/v4"

	"MaterialHarvester/internal/config"
	"MaterialHarvester/internal/domain"
	"MaterialHarvester/internal/ports"
)

// Client lists catalog materials from the MERLOT advanced-search API.
// A full harvest takes tens of minutes against the live catalog, so the
// result is snapshotted to disk and reused by later runs.
type Client struct {
	baseURL      string
	licenseKey   string
	snapshotPath string
	pageSize     int
	client       *http.Client
	logger       *slog.Logger
}

var _ ports.MaterialSource = (*Client)(nil)

type searchPage struct {
	TotalMaterials int           `json:"nummaterialstotal"`
	Results        []rawMaterial `json:"results"`
}

type rawMaterial struct {
	MaterialID      int    `json:"materialid"`
	Title           string `json:"title"`
	URL             string `json:"url"`
	DetailURL       string `json:"detailURL"`
	Keywords        string `json:"keywords"`
	TechnicalFormat string `json:"technicalFormat"`
}

// NewClient wires the catalog endpoint; a nil http.Client gets a default.
func NewClient(cfg config.CatalogConfig, client *http.Client, logger *slog.Logger) *Client {
	if client == nil {
		client = &http.Client{Timeout: 60 * time.Second}
	}

	pageSize := cfg.PageSize
	if pageSize <= 0 {
		pageSize = 100
	}

	return &Client{
		baseURL:      cfg.BaseURL,
		licenseKey:   cfg.LicenseKey,
		snapshotPath: cfg.SnapshotPath,
		pageSize:     pageSize,
		client:       client,
		logger:       logger,
	}
}

// ListMaterials returns every catalog material with its links populated.
// A present snapshot short-circuits the harvest entirely.
func (c *Client) ListMaterials(ctx context.Context) ([]domain.Material, error) {
	if raw, err := c.loadSnapshot(); err != nil {
		return nil, err
	} else if raw != nil {
		c.info("loaded metadata snapshot", "path", c.snapshotPath, "materials", len(raw))
		return toMaterials(raw), nil
	}

	raw, err := c.harvest(ctx)
	if err != nil {
		return nil, err
	}

	if err := c.saveSnapshot(raw); err != nil {
		return nil, err
	}
	c.info("harvested catalog metadata", "materials", len(raw))

	return toMaterials(raw), nil
}

func (c *Client) harvest(ctx context.Context) ([]rawMaterial, error) {
	first, err := c.searchPageWithRetry(ctx, 1)
	if err != nil {
		return nil, fmt.Errorf("fetch first page: %w", err)
	}
	if len(first.Results) == 0 {
		return nil, nil
	}

	all := append([]rawMaterial{}, first.Results...)
	pages := first.TotalMaterials / len(first.Results)

	// The catalog rate-limits aggressively; pages are walked sequentially.
	for page := 2; page <= pages+1; page++ {
		result, err := c.searchPageWithRetry(ctx, page)
		if err != nil {
			return nil, fmt.Errorf("fetch page %d: %w", page, err)
		}
		if len(result.Results) == 0 {
			break
		}
		all = append(all, result.Results...)
	}

	return all, nil
}

func (c *Client) searchPageWithRetry(ctx context.Context, page int) (*searchPage, error) {
	bo := backoff.NewExponentialBackOff()
	bo.MaxElapsedTime = 2 * time.Minute

	var result *searchPage
	operation := func() error {
		fetched, err := c.searchPage(ctx, page)
		if err != nil {
			if domain.IsTransient(err) {
				return err
			}
			return backoff.Permanent(err)
		}
		result = fetched
		return nil
	}

	if err := backoff.Retry(operation, backoff.WithContext(bo, ctx)); err != nil {
		return nil, err
	}
	return result, nil
}

func (c *Client) searchPage(ctx context.Context, page int) (*searchPage, error) {
	endpoint := c.baseURL + "/materialsAdvanced.json"

	query := url.Values{}
	query.Set("licenseKey", c.licenseKey)
	query.Set("page", strconv.Itoa(page))
	query.Set("pageSize", strconv.Itoa(c.pageSize))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint+"?"+query.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request page: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, &domain.StatusError{Code: resp.StatusCode}
	}

	var result searchPage
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("decode page: %w", err)
	}

	return &result, nil
}

func (c *Client) loadSnapshot() ([]rawMaterial, error) {
	if c.snapshotPath == "" {
		return nil, nil
	}

	raw, err := os.ReadFile(c.snapshotPath)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read metadata snapshot: %w", err)
	}

	var materials []rawMaterial
	if err := json.Unmarshal(raw, &materials); err != nil {
		return nil, fmt.Errorf("parse metadata snapshot: %w", err)
	}
	return materials, nil
}

func (c *Client) saveSnapshot(materials []rawMaterial) error {
	if c.snapshotPath == "" {
		return nil
	}

	if err := os.MkdirAll(filepath.Dir(c.snapshotPath), 0o755); err != nil {
		return fmt.Errorf("create snapshot dir: %w", err)
	}

	raw, err := json.Marshal(materials)
	if err != nil {
		return fmt.Errorf("encode metadata snapshot: %w", err)
	}
	if err := os.WriteFile(c.snapshotPath, raw, 0o644); err != nil {
		return fmt.Errorf("write metadata snapshot: %w", err)
	}
	return nil
}

func toMaterials(raw []rawMaterial) []domain.Material {
	materials := make([]domain.Material, 0, len(raw))
	for _, m := range raw {
		material := domain.Material{
			ID:        m.MaterialID,
			Title:     m.Title,
			DetailURL: m.DetailURL,
			Keywords:  m.Keywords,
		}
		if m.URL != "" {
			material.Links = append(material.Links, domain.Link{
				URL:       m.URL,
				MediaHint: m.TechnicalFormat,
			})
		}
		materials = append(materials, material)
	}
	return materials
}

func (c *Client) info(msg string, args ...any) {
	if c.logger != nil {
		c.logger.Info(msg, args...)
	}
}
