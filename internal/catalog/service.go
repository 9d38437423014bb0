package catalog

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"golang.org/x/sync/singleflight"

	"songpreview/internal/httpcache"
	"songpreview/internal/logger"
)

const userAgent = "songpreview/1.0"

// Options configures the catalog Service.
type Options struct {
	APIURL        string
	DefaultTerm   string
	TopLimit      int
	SearchTimeout time.Duration
	// CacheTopSongs routes FetchTopSongs through the response cache as well.
	CacheTopSongs bool
}

// Service searches the catalog, reading through a response cache on the
// keyword search path.
type Service struct {
	httpClient *http.Client
	cache      httpcache.Store
	logger     *logger.Logger
	opts       Options
	inflight   singleflight.Group
}

// New creates a catalog Service. A nil cache disables caching.
func New(opts Options, cache httpcache.Store, log *logger.Logger) *Service {
	return &Service{
		// No client-wide timeout: the search path sets its own deadline and
		// the top songs path uses the transport defaults.
		httpClient: &http.Client{},
		cache:      cache,
		logger:     log,
		opts:       opts,
	}
}

// SearchSongs queries the catalog for songs matching keyword.
func (s *Service) SearchSongs(ctx context.Context, keyword string) ([]Song, error) {
	keyword = strings.TrimSpace(keyword)
	if keyword == "" {
		return []Song{}, nil
	}

	params := url.Values{}
	params.Set("term", keyword)
	params.Set("entity", "song")

	if s.opts.SearchTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.opts.SearchTimeout)
		defer cancel()
	}

	req, err := s.newRequest(ctx, params)
	if err != nil {
		return nil, err
	}
	return s.fetch(req, true)
}

// FetchTopSongs queries the catalog for the configured landing term.
func (s *Service) FetchTopSongs(ctx context.Context) ([]Song, error) {
	params := url.Values{}
	params.Set("term", s.opts.DefaultTerm)
	params.Set("entity", "song")
	params.Set("limit", strconv.Itoa(s.opts.TopLimit))

	req, err := s.newRequest(ctx, params)
	if err != nil {
		return nil, err
	}
	return s.fetch(req, s.opts.CacheTopSongs)
}

func (s *Service) newRequest(ctx context.Context, params url.Values) (*http.Request, error) {
	base, err := url.Parse(s.opts.APIURL)
	if err != nil || (base.Scheme != "http" && base.Scheme != "https") || base.Host == "" {
		return nil, fmt.Errorf("%w: %q", ErrInvalidURL, s.opts.APIURL)
	}
	base.RawQuery = params.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, base.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidURL, err)
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Accept", "application/json")
	return req, nil
}

func (s *Service) fetch(req *http.Request, cached bool) ([]Song, error) {
	if !cached || s.cache == nil {
		body, err := s.roundTrip(req)
		if err != nil {
			return nil, err
		}
		return decode(body)
	}

	key := httpcache.Key(req)
	if body, ok, err := s.cache.Get(key); ok {
		s.logger.Debug("cache hit: %s", req.URL.String())
		return decode(body)
	} else if err != nil {
		s.logger.Warn("cache read failed for %s: %v", req.URL.String(), err)
	}

	// Identical misses in flight share one transport call. It runs detached
	// from the caller that started it, so a cancelled caller does not fail
	// the others; each caller still gives up on its own context.
	ch := s.inflight.DoChan(key, func() (interface{}, error) {
		ctx := context.WithoutCancel(req.Context())
		if s.opts.SearchTimeout > 0 {
			var cancel context.CancelFunc
			ctx, cancel = context.WithTimeout(ctx, s.opts.SearchTimeout)
			defer cancel()
		}

		body, err := s.roundTrip(req.Clone(ctx))
		if err != nil {
			return nil, err
		}
		if err := s.cache.Put(key, body); err != nil {
			s.logger.Warn("cache write failed for %s: %v", req.URL.String(), err)
		}
		return body, nil
	})

	select {
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		if res.Shared {
			s.logger.Debug("shared in-flight response: %s", req.URL.String())
		}
		return decode(res.Val.([]byte))
	case <-req.Context().Done():
		return nil, fmt.Errorf("catalog search request failed: %w", req.Context().Err())
	}
}

func (s *Service) roundTrip(req *http.Request) ([]byte, error) {
	s.logger.Debug("GET %s", req.URL.String())

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("catalog search request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read catalog response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &StatusError{StatusCode: resp.StatusCode, Body: string(bytes.TrimSpace(body))}
	}
	if len(bytes.TrimSpace(body)) == 0 {
		return nil, ErrNoData
	}
	return body, nil
}

func decode(body []byte) ([]Song, error) {
	if len(bytes.TrimSpace(body)) == 0 {
		return nil, ErrNoData
	}

	var envelope struct {
		Results *[]Song `json:"results"`
	}
	if err := json.Unmarshal(body, &envelope); err != nil {
		return nil, fmt.Errorf("failed to decode catalog response: %w", err)
	}
	if envelope.Results == nil {
		return nil, fmt.Errorf("failed to decode catalog response: missing %q field", "results")
	}
	if *envelope.Results == nil {
		return []Song{}, nil
	}
	return *envelope.Results, nil
}
