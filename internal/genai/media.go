package genai

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/jellydator/ttlcache/v3"
	"github.com/rs/zerolog/log"
)

const (
	maxImagesPerRequest = 5
	maxImageBytes       = 8 << 20 // 8 MiB
	fetchTimeout        = 15 * time.Second
	mediaCacheTTL       = 15 * time.Minute
)

// MediaItem is a media reference forwarded by the frontend.
type MediaItem struct {
	Type    string `json:"type"`
	URL     string `json:"url"`
	AltText string `json:"altText"`
	Title   string `json:"title"`
}

func (m MediaItem) description() string {
	if m.AltText != "" {
		return m.AltText
	}
	if m.Title != "" {
		return m.Title
	}
	return "Image from post"
}

// FetchedImage is a downloaded image ready for a multimodal prompt.
type FetchedImage struct {
	MIMEType    string
	Data        []byte
	Description string
}

// MediaFetcher downloads post images with size and type limits. Fetched
// images are cached briefly so regenerate calls for the same post do not
// refetch them.
type MediaFetcher struct {
	httpClient *http.Client
	cache      *ttlcache.Cache[string, *FetchedImage]
}

// NewMediaFetcher creates a MediaFetcher with automatic cache cleanup.
func NewMediaFetcher() *MediaFetcher {
	cache := ttlcache.New(
		ttlcache.WithTTL[string, *FetchedImage](mediaCacheTTL),
		ttlcache.WithDisableTouchOnHit[string, *FetchedImage](),
	)
	go cache.Start()

	return &MediaFetcher{
		httpClient: &http.Client{Timeout: fetchTimeout},
		cache:      cache,
	}
}

// Fetch downloads up to maxImagesPerRequest images from items. Items that
// cannot be fetched degrade to their alt-text description so the prompt can
// still mention them. Only items of type "image" are considered.
func (f *MediaFetcher) Fetch(ctx context.Context, items []MediaItem) ([]*FetchedImage, []string) {
	var (
		images       []*FetchedImage
		descriptions []string
	)
	for _, item := range items {
		if item.Type != "image" {
			continue
		}
		if len(images) >= maxImagesPerRequest {
			break
		}
		if item.URL == "" || strings.HasPrefix(item.URL, "data:") {
			continue
		}

		img, err := f.fetchOne(ctx, item)
		if err != nil {
			log.Warn().Err(err).Str("url", truncate(item.URL, 50)).Msg("Failed to fetch image")
			if item.AltText != "" || item.Title != "" {
				descriptions = append(descriptions, item.description())
			}
			continue
		}
		images = append(images, img)
	}
	return images, descriptions
}

func (f *MediaFetcher) fetchOne(ctx context.Context, item MediaItem) (*FetchedImage, error) {
	if cached := f.cache.Get(item.URL); cached != nil {
		return cached.Value(), nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, item.URL, nil)
	if err != nil {
		return nil, err
	}
	// Some CDNs refuse requests without browser-looking headers.
	req.Header.Set("User-Agent", "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36")
	req.Header.Set("Accept", "image/*")
	req.Header.Set("Referer", "https://www.linkedin.com/")

	resp, err := f.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status %d fetching image", resp.StatusCode)
	}

	contentType := resp.Header.Get("Content-Type")
	if !strings.Contains(contentType, "image") {
		return nil, fmt.Errorf("skipping non-image media type: %s", contentType)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxImageBytes+1))
	if err != nil {
		return nil, err
	}
	if len(data) > maxImageBytes {
		return nil, fmt.Errorf("image exceeds %d byte limit", maxImageBytes)
	}

	img := &FetchedImage{
		MIMEType:    contentType,
		Data:        data,
		Description: item.description(),
	}
	f.cache.Set(item.URL, img, ttlcache.DefaultTTL)
	log.Info().Str("url", truncate(item.URL, 80)).Int("bytes", len(data)).Msg("Image fetched")
	return img, nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
