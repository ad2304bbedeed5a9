// Package weather provides a weatherapi.com forecast client and the
// "Weather Forecast" tool built on it.
package weather

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"golang.org/x/time/rate"

	"github.com/hupe1980/tourmesh/logging"
)

// DateLayout is the date format accepted by the forecast endpoint.
const DateLayout = "2006-01-02"

// ErrNoAPIKey is returned when the client has no weatherapi.com key.
var ErrNoAPIKey = errors.New("weather api key is not configured")

// Period is a named range of hours within a forecast day.
type Period struct {
	Name      string
	StartHour int // inclusive
	EndHour   int // inclusive
}

// Periods lists the day parts a forecast is grouped into.
var Periods = []Period{
	{Name: "Morning", StartHour: 5, EndHour: 11},
	{Name: "Afternoon", StartHour: 13, EndHour: 17},
	{Name: "Night", StartHour: 18, EndHour: 23},
}

// Hour is one hourly forecast entry.
type Hour struct {
	Time         string // HH:MM
	TempC        float64
	Condition    string
	ChanceOfRain int
	Humidity     int
}

// Forecast is a single day's forecast grouped by period.
type Forecast struct {
	Place   string
	Date    string
	Found   bool
	Periods map[string][]Hour
}

// ClientOptions configures a Client.
type ClientOptions struct {
	APIKey     string
	BaseURL    string
	Language   string
	HTTPClient *http.Client
	// RequestsPerMinute bounds outbound calls. Zero disables throttling.
	RequestsPerMinute int
	// CacheTTL is how long a (place, date) forecast is reused. Zero disables caching.
	CacheTTL  time.Duration
	CacheSize int
	Logger    logging.Logger
}

// Client fetches forecasts from weatherapi.com.
type Client struct {
	opts    ClientOptions
	limiter *rate.Limiter
	cache   *expirable.LRU[string, *Forecast]
}

// NewClient creates a forecast client.
func NewClient(optFns ...func(o *ClientOptions)) *Client {
	opts := ClientOptions{
		BaseURL:    "https://api.weatherapi.com/v1",
		Language:   "en",
		HTTPClient: &http.Client{Timeout: 15 * time.Second},
		CacheSize:  256,
		Logger:     logging.NoOpLogger{},
	}

	for _, fn := range optFns {
		fn(&opts)
	}

	c := &Client{opts: opts}

	if opts.RequestsPerMinute > 0 {
		c.limiter = rate.NewLimiter(rate.Limit(float64(opts.RequestsPerMinute)/60.0), 1)
	}

	if opts.CacheTTL > 0 {
		c.cache = expirable.NewLRU[string, *Forecast](opts.CacheSize, nil, opts.CacheTTL)
	}

	return c
}

// Forecast returns the forecast for place on date (YYYY-MM-DD).
func (c *Client) Forecast(ctx context.Context, date, place string) (*Forecast, error) {
	if c.opts.APIKey == "" {
		return nil, ErrNoAPIKey
	}

	if _, err := time.Parse(DateLayout, date); err != nil {
		return nil, fmt.Errorf("invalid date %q, expected YYYY-MM-DD", date)
	}

	place = strings.TrimSpace(place)
	if place == "" {
		return nil, errors.New("place must not be empty")
	}

	key := strings.ToLower(place) + "|" + date
	if c.cache != nil {
		if f, ok := c.cache.Get(key); ok {
			c.opts.Logger.Debug("weather.cache.hit", "place", place, "date", date)
			return f, nil
		}
	}

	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("weather rate limit: %w", err)
		}
	}

	f, err := c.fetch(ctx, date, place)
	if err != nil {
		return nil, err
	}

	if c.cache != nil {
		c.cache.Add(key, f)
	}

	return f, nil
}

type apiResponse struct {
	Location struct {
		Name string `json:"name"`
	} `json:"location"`
	Forecast struct {
		ForecastDay []struct {
			Date string `json:"date"`
			Hour []struct {
				Time      string  `json:"time"`
				TempC     float64 `json:"temp_c"`
				Condition struct {
					Text string `json:"text"`
				} `json:"condition"`
				ChanceOfRain int `json:"chance_of_rain"`
				Humidity     int `json:"humidity"`
			} `json:"hour"`
		} `json:"forecastday"`
	} `json:"forecast"`
	Error *struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

func (c *Client) fetch(ctx context.Context, date, place string) (*Forecast, error) {
	q := url.Values{}
	q.Set("key", c.opts.APIKey)
	q.Set("q", place)
	q.Set("dt", date)
	q.Set("aqi", "no")
	q.Set("alerts", "no")
	q.Set("lang", c.opts.Language)

	endpoint := strings.TrimRight(c.opts.BaseURL, "/") + "/forecast.json?" + q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("build weather request: %w", err)
	}

	start := time.Now()

	resp, err := c.opts.HTTPClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("weather request: %w", err)
	}
	defer resp.Body.Close()

	var body apiResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("decode weather response (status %d): %w", resp.StatusCode, err)
	}

	if body.Error != nil {
		return nil, fmt.Errorf("weather api error %d: %s", body.Error.Code, body.Error.Message)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("weather api returned status %d", resp.StatusCode)
	}

	c.opts.Logger.Debug("weather.fetch", "place", place, "date", date, "duration_ms", time.Since(start).Milliseconds())

	f := &Forecast{Place: place, Date: date, Periods: map[string][]Hour{}}
	if body.Location.Name != "" {
		f.Place = body.Location.Name
	}

	if len(body.Forecast.ForecastDay) == 0 {
		return f, nil
	}

	f.Found = true

	for _, h := range body.Forecast.ForecastDay[0].Hour {
		clock := h.Time
		if i := strings.LastIndexByte(clock, ' '); i >= 0 {
			clock = clock[i+1:]
		}

		hour, err := strconv.Atoi(strings.SplitN(clock, ":", 2)[0])
		if err != nil {
			continue
		}

		for _, p := range Periods {
			if hour >= p.StartHour && hour <= p.EndHour {
				f.Periods[p.Name] = append(f.Periods[p.Name], Hour{
					Time:         clock,
					TempC:        h.TempC,
					Condition:    h.Condition.Text,
					ChanceOfRain: h.ChanceOfRain,
					Humidity:     h.Humidity,
				})
			}
		}
	}

	return f, nil
}

// Format renders the forecast as the observation text shown to the model.
func (f *Forecast) Format() string {
	if !f.Found {
		return fmt.Sprintf("No forecast found for %s in %s.", f.Date, f.Place)
	}

	var b strings.Builder

	fmt.Fprintf(&b, "Forecast for %s in %s:\n", f.Date, f.Place)

	for _, p := range Periods {
		fmt.Fprintf(&b, "\n%s:\n", p.Name)

		hours := f.Periods[p.Name]
		if len(hours) == 0 {
			b.WriteString("  No forecast found for this period.\n")
			continue
		}

		for _, h := range hours {
			fmt.Fprintf(&b, "Hour: %s - Temp: %.1f°C, Condition: %s, Chance of rain: %d%%, Humidity: %d%%\n",
				h.Time, h.TempC, h.Condition, h.ChanceOfRain, h.Humidity)
		}
	}

	return b.String()
}
