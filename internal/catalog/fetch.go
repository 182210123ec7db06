package catalog

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"sync"
	"time"
)

// Параметры загрузки с CelesTrak.
const (
	DefaultBaseURL = "https://celestrak.org/NORAD/elements/gp.php"

	// DefaultRateLimit минимальный интервал между запросами.
	DefaultRateLimit = 2 * time.Second

	DefaultTimeout    = 30 * time.Second
	DefaultMaxRetries = 3
	DefaultBackoff    = time.Second

	userAgent = "satpredict/1.0"

	// maxBodySize ограничивает ответ; группа "active" занимает около 3 МБ.
	maxBodySize = 32 << 20
)

// Ошибки загрузки.
var (
	ErrNotFound    = errors.New("no element sets found")
	ErrRateLimited = errors.New("rate limited (429)")
	ErrServer      = errors.New("server error")
)

// noData тело ответа CelesTrak при пустой выборке.
var noData = []byte("No GP data found")

// Fetcher загружает наборы элементов по HTTP в формате TLE.
// Запросы одного Fetcher разнесены не менее чем на rateLimit.
type Fetcher struct {
	httpClient *http.Client
	baseURL    string
	rateLimit  time.Duration
	maxRetries int
	backoff    time.Duration

	mu          sync.Mutex
	lastRequest time.Time
}

// FetchOption функция настройки Fetcher.
type FetchOption func(*Fetcher)

// WithHTTPClient задаёт HTTP-клиент.
func WithHTTPClient(client *http.Client) FetchOption {
	return func(f *Fetcher) {
		f.httpClient = client
	}
}

// WithBaseURL задаёт адрес GP API.
func WithBaseURL(u string) FetchOption {
	return func(f *Fetcher) {
		f.baseURL = u
	}
}

// WithRateLimit задаёт минимальный интервал между запросами.
func WithRateLimit(d time.Duration) FetchOption {
	return func(f *Fetcher) {
		f.rateLimit = d
	}
}

// WithMaxRetries задаёт число повторов после неудачного запроса.
func WithMaxRetries(n int) FetchOption {
	return func(f *Fetcher) {
		f.maxRetries = n
	}
}

// WithBackoff задаёт начальную паузу перед повтором; далее она удваивается.
func WithBackoff(d time.Duration) FetchOption {
	return func(f *Fetcher) {
		f.backoff = d
	}
}

// NewFetcher создаёт загрузчик с параметрами по умолчанию.
func NewFetcher(opts ...FetchOption) *Fetcher {
	f := &Fetcher{
		httpClient: &http.Client{Timeout: DefaultTimeout},
		baseURL:    DefaultBaseURL,
		rateLimit:  DefaultRateLimit,
		maxRetries: DefaultMaxRetries,
		backoff:    DefaultBackoff,
	}

	for _, opt := range opts {
		opt(f)
	}

	return f
}

// GroupURL возвращает адрес выборки группы.
func (f *Fetcher) GroupURL(group string) string {
	return f.query(url.Values{"GROUP": {group}, "FORMAT": {"TLE"}})
}

// NoradURL возвращает адрес выборки одного спутника.
func (f *Fetcher) NoradURL(noradID int) string {
	return f.query(url.Values{"CATNR": {strconv.Itoa(noradID)}, "FORMAT": {"TLE"}})
}

func (f *Fetcher) query(v url.Values) string {
	return f.baseURL + "?" + v.Encode()
}

// Fetch загружает тело ответа по адресу u с повторами и ограничением частоты.
// ErrNotFound не повторяется.
func (f *Fetcher) Fetch(ctx context.Context, u string) ([]byte, error) {
	if err := f.waitForRateLimit(ctx); err != nil {
		return nil, err
	}

	var lastErr error
	for attempt := 0; attempt <= f.maxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(f.backoff << (attempt - 1)):
			}
		}

		data, err := f.do(ctx, u)
		if err == nil {
			return data, nil
		}
		if errors.Is(err, ErrNotFound) || ctx.Err() != nil {
			return nil, err
		}
		lastErr = err
	}

	return nil, fmt.Errorf("after %d retries: %w", f.maxRetries, lastErr)
}

func (f *Fetcher) waitForRateLimit(ctx context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if wait := f.rateLimit - time.Since(f.lastRequest); wait > 0 {
		timer := time.NewTimer(wait)
		defer timer.Stop()

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-timer.C:
		}
	}
	f.lastRequest = time.Now()

	return nil
}

func (f *Fetcher) do(ctx context.Context, u string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := f.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("executing request: %w", err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusOK:
	case resp.StatusCode == http.StatusNotFound:
		return nil, ErrNotFound
	case resp.StatusCode == http.StatusTooManyRequests:
		return nil, ErrRateLimited
	case resp.StatusCode >= 500:
		return nil, fmt.Errorf("%w: %d", ErrServer, resp.StatusCode)
	default:
		return nil, fmt.Errorf("unexpected status: %d", resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		return nil, fmt.Errorf("reading response: %w", err)
	}

	if bytes.Equal(bytes.TrimSpace(body), noData) {
		return nil, ErrNotFound
	}

	return body, nil
}

// LoadGroup загружает группу CelesTrak в каталог. Источником служит
// "celestrak:<group>".
func (c *Catalog) LoadGroup(ctx context.Context, f *Fetcher, group string) (LoadResult, error) {
	source := "celestrak:" + group

	data, err := f.Fetch(ctx, f.GroupURL(group))
	if err != nil {
		return LoadResult{Source: source}, fmt.Errorf("%w: group %s: %w", ErrLoadFailed, group, err)
	}

	res, err := c.Load(bytes.NewReader(data), source)
	if err != nil {
		return res, err
	}

	c.logger.InfoContext(ctx, "loaded element sets",
		"source", source,
		"count", res.Loaded,
		"rejected", res.Rejected,
	)

	return res, nil
}

// LoadGroups загружает группы последовательно, соблюдая ограничение
// частоты Fetcher. Неудачная группа не прерывает остальные.
func (c *Catalog) LoadGroups(ctx context.Context, f *Fetcher, groups []string) error {
	var errs []error

	for _, g := range groups {
		if ctx.Err() != nil {
			errs = append(errs, ctx.Err())
			break
		}
		if _, err := c.LoadGroup(ctx, f, g); err != nil {
			c.logger.WarnContext(ctx, "failed to load group", "group", g, "error", err)
			errs = append(errs, err)
		}
	}

	return errors.Join(errs...)
}
