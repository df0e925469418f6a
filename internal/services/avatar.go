package services

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
)

const (
	defaultAvatarBaseURL = "https://api.dicebear.com/8.x/pixel-art/svg"
	maxAvatarBytes       = 256 << 10
)

// AvatarService proxies generated pixel-art avatars, keeping recent ones in memory.
type AvatarService struct {
	baseURL    string
	httpClient *http.Client
	cache      *expirable.LRU[string, []byte]
}

func NewAvatarService(baseURL string) *AvatarService {
	if baseURL == "" {
		baseURL = defaultAvatarBaseURL
	}
	return &AvatarService{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: 10 * time.Second},
		cache:      expirable.NewLRU[string, []byte](1024, nil, 24*time.Hour),
	}
}

// SVG returns the avatar image for seed.
func (s *AvatarService) SVG(ctx context.Context, seed string) ([]byte, error) {
	if svg, ok := s.cache.Get(seed); ok {
		return svg, nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.baseURL+"?seed="+url.QueryEscape(seed), nil)
	if err != nil {
		return nil, err
	}

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("avatar service returned %d", resp.StatusCode)
	}

	svg, err := io.ReadAll(io.LimitReader(resp.Body, maxAvatarBytes))
	if err != nil {
		return nil, err
	}

	s.cache.Add(seed, svg)
	return svg, nil
}
