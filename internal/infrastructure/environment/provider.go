// Package environment supplies the read-only context snapshot attached to
// inference requests. Real weather/geolocation enrichment lives outside
// this repository; the provider carries configurable base values and
// derives the calendar fields from the clock.
package environment

import (
	"time"

	"moodflix-capture/internal/domain"
)

// Base values used when nothing is configured.
const (
	DefaultCity        = "Seoul"
	DefaultWeather     = "Clear"
	DefaultTemperature = "13.51"
	defaultLat         = 37.5665
	defaultLon         = 126.978
)

// Provider implements application.EnvironmentProvider.
type Provider struct {
	base domain.EnvironmentSnapshot
	now  func() time.Time
}

// Option customizes a Provider.
type Option func(*Provider)

// WithCity overrides the city.
func WithCity(city string) Option {
	return func(p *Provider) { p.base.City = city }
}

// WithWeather overrides the weather description.
func WithWeather(desc string) Option {
	return func(p *Provider) { p.base.WeatherDesc = desc }
}

// WithTemperature overrides the temperature.
func WithTemperature(temp string) Option {
	return func(p *Provider) { p.base.Temperature = temp }
}

// WithCoordinates overrides the location.
func WithCoordinates(lat, lon float64) Option {
	return func(p *Provider) {
		p.base.Lat = lat
		p.base.Lon = lon
	}
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(p *Provider) { p.now = now }
}

// NewProvider creates a provider with the base defaults applied.
func NewProvider(opts ...Option) *Provider {
	p := &Provider{
		base: domain.EnvironmentSnapshot{
			City:        DefaultCity,
			WeatherDesc: DefaultWeather,
			Temperature: DefaultTemperature,
			Lat:         defaultLat,
			Lon:         defaultLon,
		},
		now: time.Now,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Snapshot returns the environment context for one outbound request.
// Weekday and day statuses reflect the current clock.
func (p *Provider) Snapshot() domain.EnvironmentSnapshot {
	snap := p.base
	now := p.now()
	snap.Weekday = now.Weekday().String()
	snap.TodayStatus = dayStatus(now.Weekday())
	snap.TomorrowStatus = dayStatus(now.AddDate(0, 0, 1).Weekday())
	return snap
}

func dayStatus(d time.Weekday) string {
	if d == time.Saturday || d == time.Sunday {
		return domain.DayStatusWeekend
	}
	return domain.DayStatusWeekday
}
