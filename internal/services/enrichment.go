package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"botiquin_backend/internal/models"
	"botiquin_backend/pkg/utils"

	"github.com/redis/go-redis/v9"
)

// DrugInfoProvider is the optional enrichment collaborator: given a
// medicine name it returns stable facts about the drug, or (nil, nil)
// when the name is unknown. Lookups are best-effort; callers must not
// block a mutation on a failed lookup.
type DrugInfoProvider interface {
	Lookup(ctx context.Context, name string) (*models.DrugInfo, error)
}

// --- CIMA client ---

// cimaBaseURL is the Spanish medicines agency REST endpoint the original
// cabinet drafts queried for active-ingredient data.
const cimaBaseURL = "https://cima.aemps.es/cima/rest/medicamentos"

const lookupTimeout = 5 * time.Second

type cimaProvider struct {
	client  *http.Client
	baseURL string
}

// NewCIMAProvider returns a DrugInfoProvider backed by the CIMA REST API.
func NewCIMAProvider() DrugInfoProvider {
	return &cimaProvider{
		client:  &http.Client{Timeout: lookupTimeout},
		baseURL: cimaBaseURL,
	}
}

type cimaResponse struct {
	Resultados []struct {
		Nombre     string `json:"nombre"`
		Pactivos   string `json:"pactivos"`
		Labtitular string `json:"labtitular"`
	} `json:"resultados"`
}

func (p *cimaProvider) Lookup(ctx context.Context, name string) (*models.DrugInfo, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet,
		p.baseURL+"?nombre="+url.QueryEscape(name), nil)
	if err != nil {
		return nil, fmt.Errorf("building enrichment request: %w", err)
	}

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("enrichment lookup for %q: %w", name, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("enrichment lookup for %q: unexpected status %d", name, resp.StatusCode)
	}

	var payload cimaResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("decoding enrichment response for %q: %w", name, err)
	}
	if len(payload.Resultados) == 0 {
		return nil, nil
	}

	first := payload.Resultados[0]
	info := &models.DrugInfo{
		ActiveIngredient: first.Pactivos,
		Description:      first.Nombre,
	}
	if first.Labtitular != "" {
		info.Description = first.Nombre + " (" + first.Labtitular + ")"
	}
	return info, nil
}

// --- caching decorator ---

// DrugInfoCache stores lookup results long-term; drug facts for a given
// name do not change.
type DrugInfoCache interface {
	Get(ctx context.Context, name string) (*models.DrugInfo, bool, error)
	Set(ctx context.Context, name string, info *models.DrugInfo) error
}

type cachedProvider struct {
	inner DrugInfoProvider
	cache DrugInfoCache
}

// NewCachedProvider wraps a provider with a cache. Cache failures are
// logged and ignored; the lookup still goes through.
func NewCachedProvider(inner DrugInfoProvider, cache DrugInfoCache) DrugInfoProvider {
	return &cachedProvider{inner: inner, cache: cache}
}

func (c *cachedProvider) Lookup(ctx context.Context, name string) (*models.DrugInfo, error) {
	key := utils.NormalizeText(name)
	if info, ok, err := c.cache.Get(ctx, key); err != nil {
		utils.LogError(err, "enrichment cache read failed")
	} else if ok {
		return info, nil
	}

	info, err := c.inner.Lookup(ctx, name)
	if err != nil {
		return nil, err
	}
	if info != nil {
		if err := c.cache.Set(ctx, key, info); err != nil {
			utils.LogError(err, "enrichment cache write failed")
		}
	}
	return info, nil
}

// --- cache implementations ---

const redisDrugKeyPrefix = "druginfo:"

type redisDrugCache struct {
	client *redis.Client
}

// NewRedisDrugCache caches lookups in redis with no expiry.
func NewRedisDrugCache(client *redis.Client) DrugInfoCache {
	return &redisDrugCache{client: client}
}

func (r *redisDrugCache) Get(ctx context.Context, name string) (*models.DrugInfo, bool, error) {
	raw, err := r.client.Get(ctx, redisDrugKeyPrefix+name).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, false, nil
		}
		return nil, false, err
	}
	var info models.DrugInfo
	if err := json.Unmarshal([]byte(raw), &info); err != nil {
		return nil, false, err
	}
	return &info, true, nil
}

func (r *redisDrugCache) Set(ctx context.Context, name string, info *models.DrugInfo) error {
	raw, err := json.Marshal(info)
	if err != nil {
		return err
	}
	return r.client.Set(ctx, redisDrugKeyPrefix+name, raw, 0).Err()
}

type memoryDrugCache struct {
	mu      sync.Mutex
	entries map[string]models.DrugInfo
}

// NewMemoryDrugCache is the in-process fallback when no redis is
// configured.
func NewMemoryDrugCache() DrugInfoCache {
	return &memoryDrugCache{entries: map[string]models.DrugInfo{}}
}

func (m *memoryDrugCache) Get(_ context.Context, name string) (*models.DrugInfo, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	info, ok := m.entries[name]
	if !ok {
		return nil, false, nil
	}
	copied := info
	return &copied, true, nil
}

func (m *memoryDrugCache) Set(_ context.Context, name string, info *models.DrugInfo) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries[name] = *info
	return nil
}
