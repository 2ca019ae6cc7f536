package weather

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/tidwall/gjson"

	"nova/internal/model"
)

const (
	DefaultWeatherURL  = "http://api.weatherapi.com"
	DefaultLocationURL = "http://ip-api.com"
	forecastDays       = 3
	requestTimeout     = 15 * time.Second
)

// ErrUnknownLocation means no city could be determined.
var ErrUnknownLocation = errors.New("location unknown")

// Report is the current weather for a city plus the next days.
type Report struct {
	City      string
	Condition string
	TempC     float64
	Days      []model.ForecastDay
}

// Summary is the sentence spoken back to the user.
func (r Report) Summary() string {
	return fmt.Sprintf("Weather in %s: %s, %s°C", r.City, r.Condition, strconv.FormatFloat(r.TempC, 'f', -1, 64))
}

type Provider interface {
	Forecast(ctx context.Context, city string) (Report, error)
}

type Locator interface {
	City(ctx context.Context) (string, error)
}

// WeatherAPI queries weatherapi.com.
type WeatherAPI struct {
	key  string
	base string
	http *http.Client
}

func NewWeatherAPI(key, baseURL string, hc *http.Client) *WeatherAPI {
	if baseURL == "" {
		baseURL = DefaultWeatherURL
	}
	if hc == nil {
		hc = &http.Client{Timeout: requestTimeout}
	}
	return &WeatherAPI{key: key, base: baseURL, http: hc}
}

func (w *WeatherAPI) Forecast(ctx context.Context, city string) (Report, error) {
	q := url.Values{}
	q.Set("key", w.key)
	q.Set("q", city)
	q.Set("days", strconv.Itoa(forecastDays))
	q.Set("aqi", "no")
	q.Set("alerts", "no")

	body, err := get(ctx, w.http, w.base+"/v1/forecast.json?"+q.Encode())
	if err != nil {
		return Report{}, fmt.Errorf("weather for %s: %w", city, err)
	}

	if msg := gjson.GetBytes(body, "error.message"); msg.Exists() {
		return Report{}, fmt.Errorf("weather for %s: %s", city, msg.String())
	}

	cur := gjson.GetBytes(body, "current")
	if !cur.Exists() {
		return Report{}, fmt.Errorf("weather for %s: no current conditions", city)
	}

	r := Report{
		City:      city,
		Condition: cur.Get("condition.text").String(),
		TempC:     cur.Get("temp_c").Float(),
	}
	if r.Condition == "" {
		r.Condition = "No weather data available"
	}

	gjson.GetBytes(body, "forecast.forecastday").ForEach(func(_, d gjson.Result) bool {
		r.Days = append(r.Days, model.ForecastDay{
			Date:         d.Get("date").String(),
			Condition:    d.Get("day.condition.text").String(),
			MaxTempC:     d.Get("day.maxtemp_c").Float(),
			MinTempC:     d.Get("day.mintemp_c").Float(),
			ChanceOfRain: int(d.Get("day.daily_chance_of_rain").Int()),
		})
		return true
	})

	return r, nil
}

// IPLocator resolves the caller's city with ip-api.com.
type IPLocator struct {
	base string
	http *http.Client
}

func NewIPLocator(baseURL string, hc *http.Client) *IPLocator {
	if baseURL == "" {
		baseURL = DefaultLocationURL
	}
	if hc == nil {
		hc = &http.Client{Timeout: requestTimeout}
	}
	return &IPLocator{base: baseURL, http: hc}
}

func (l *IPLocator) City(ctx context.Context) (string, error) {
	body, err := get(ctx, l.http, l.base+"/json/?fields=status,message,countryCode,zip,city")
	if err != nil {
		return "", fmt.Errorf("locate: %w", err)
	}

	if status := gjson.GetBytes(body, "status").String(); status != "success" {
		msg := gjson.GetBytes(body, "message").String()
		if msg == "" {
			msg = "Unknown error"
		}
		return "", fmt.Errorf("%w: %s", ErrUnknownLocation, msg)
	}

	city := gjson.GetBytes(body, "city").String()
	if city == "" {
		return "", ErrUnknownLocation
	}
	return city, nil
}

// Static answers every request with the same conditions.
type Static struct {
	Condition string
	TempC     float64
}

func (s Static) Forecast(_ context.Context, city string) (Report, error) {
	return Report{City: city, Condition: s.Condition, TempC: s.TempC}, nil
}

// StaticCity is a Locator with a fixed answer.
type StaticCity string

func (c StaticCity) City(context.Context) (string, error) {
	if c == "" {
		return "", ErrUnknownLocation
	}
	return string(c), nil
}

func get(ctx context.Context, hc *http.Client, u string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, err
	}

	resp, err := hc.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	if !gjson.ValidBytes(body) {
		return nil, fmt.Errorf("invalid JSON response (status %d)", resp.StatusCode)
	}
	return body, nil
}
