package crawler

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/gocolly/colly/v2"
	"go.uber.org/zap"

	"github.com/JakeFAU/seo-linker/internal/metrics"
)

// ErrNoURLs is returned when a crawl finds no same-host links.
var ErrNoURLs = errors.New("no URLs found to process")

// DefaultMaxDepth is the crawl depth used when the caller passes zero.
const DefaultMaxDepth = 2

// Config controls collector behavior.
type Config struct {
	UserAgent   string
	Timeout     time.Duration
	Parallelism int
	Delay       time.Duration
	// MaxURLs caps the number of discovered URLs; zero means unlimited.
	MaxURLs int
	// ExcludePaths drops links under any of these path prefixes.
	ExcludePaths []string
	// SkipExtensions drops links to files with these extensions. Nil selects
	// DefaultSkipExtensions; an empty non-nil slice disables the check.
	SkipExtensions []string
	RespectRobots  bool
}

// Crawler discovers same-host links on a site using colly.
type Crawler struct {
	cfg    Config
	filter *linkFilter
	logger *zap.Logger
}

// New builds a Crawler.
func New(cfg Config, logger *zap.Logger) *Crawler {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	if cfg.Parallelism <= 0 {
		cfg.Parallelism = 4
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	exts := cfg.SkipExtensions
	if exts == nil {
		exts = DefaultSkipExtensions
	}
	return &Crawler{cfg: cfg, filter: newLinkFilter(cfg.ExcludePaths, exts), logger: logger}
}

// Discover crawls domain breadth-limited to maxDepth pages deep and returns
// every distinct same-host URL linked from the visited pages, sorted. The seed
// itself is not included.
func (c *Crawler) Discover(ctx context.Context, domain string, maxDepth int) ([]string, error) {
	seed, err := seedURL(domain)
	if err != nil {
		return nil, err
	}
	if maxDepth <= 0 {
		maxDepth = DefaultMaxDepth
	}
	host := seed.Hostname()
	seedKey, err := NormalizeURL(seed.String())
	if err != nil {
		return nil, err
	}

	collector := colly.NewCollector(
		colly.AllowedDomains(host),
		colly.MaxDepth(maxDepth),
		colly.Async(true),
		colly.StdlibContext(ctx),
	)
	if c.cfg.UserAgent != "" {
		collector.UserAgent = c.cfg.UserAgent
	}
	collector.IgnoreRobotsTxt = !c.cfg.RespectRobots
	collector.SetRequestTimeout(c.cfg.Timeout)
	if err := collector.Limit(&colly.LimitRule{
		DomainGlob:  "*",
		Parallelism: c.cfg.Parallelism,
		Delay:       c.cfg.Delay,
	}); err != nil {
		return nil, fmt.Errorf("set collector limits: %w", err)
	}

	var (
		mu    sync.Mutex
		found = make(map[string]struct{})
		full  bool
	)
	record := func(link string) bool {
		mu.Lock()
		defer mu.Unlock()
		if full {
			return false
		}
		if _, ok := found[link]; ok {
			return false
		}
		found[link] = struct{}{}
		if c.cfg.MaxURLs > 0 && len(found) >= c.cfg.MaxURLs {
			full = true
		}
		return true
	}
	forget := func(link string) {
		mu.Lock()
		defer mu.Unlock()
		delete(found, link)
	}

	collector.OnHTML("a[href]", func(e *colly.HTMLElement) {
		abs := e.Request.AbsoluteURL(e.Attr("href"))
		link, ok := sameHost(abs, host)
		if !ok || link == seedKey || c.filter.Skip(link) {
			return
		}
		if !record(link) {
			return
		}
		err := e.Request.Visit(link)
		switch {
		case err == nil || isExpectedVisitErr(err):
		case errors.Is(err, colly.ErrRobotsTxtBlocked):
			forget(link)
		default:
			c.logger.Debug("skip link", zap.String("url", link), zap.Error(err))
		}
	})
	collector.OnResponse(func(r *colly.Response) {
		metrics.ObserveCrawl(r.Request.URL.String(), "success", len(r.Body))
	})
	collector.OnError(func(r *colly.Response, err error) {
		metrics.ObserveCrawl(r.Request.URL.String(), "error", 0)
		c.logger.Warn("fetch failed",
			zap.String("url", r.Request.URL.String()),
			zap.Int("status_code", r.StatusCode),
			zap.Error(err),
		)
	})

	if err := collector.Visit(seed.String()); err != nil {
		return nil, fmt.Errorf("visit %s: %w", seed, err)
	}
	collector.Wait()
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("crawl %s: %w", host, err)
	}

	urls := make([]string, 0, len(found))
	for link := range found {
		urls = append(urls, link)
	}
	sort.Strings(urls)
	if len(urls) == 0 {
		return nil, ErrNoURLs
	}
	c.logger.Info("crawl finished", zap.String("domain", host), zap.Int("urls", len(urls)))
	return urls, nil
}

func seedURL(domain string) (*url.URL, error) {
	domain = strings.TrimSpace(domain)
	if domain == "" {
		return nil, fmt.Errorf("domain is required")
	}
	if !strings.Contains(domain, "://") {
		domain = "https://" + domain
	}
	u, err := url.Parse(domain)
	if err != nil {
		return nil, fmt.Errorf("parse domain: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("unsupported scheme %q", u.Scheme)
	}
	if u.Hostname() == "" {
		return nil, fmt.Errorf("domain %q has no host", domain)
	}
	return u, nil
}

// sameHost normalizes raw and reports whether it is an http(s) URL on host.
func sameHost(raw, host string) (string, bool) {
	u, err := url.Parse(raw)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") {
		return "", false
	}
	if !strings.EqualFold(u.Hostname(), host) {
		return "", false
	}
	link, err := NormalizeURL(raw)
	if err != nil {
		return "", false
	}
	return link, true
}

func isExpectedVisitErr(err error) bool {
	var visited *colly.AlreadyVisitedError
	return errors.Is(err, colly.ErrMaxDepth) ||
		errors.Is(err, colly.ErrForbiddenDomain) ||
		errors.As(err, &visited)
}
