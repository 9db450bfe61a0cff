package handler

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/axonhq/axon/internal/config"
	"github.com/axonhq/axon/internal/geo"
	"github.com/axonhq/axon/internal/model"
)

// RequestReader turns an inbound request into a RequestRecord using the
// configured edge headers.
type RequestReader struct {
	Config config.HoneypotConfig
	Geo    geo.Resolver
	Now    func() time.Time
}

// Record snapshots the request. The path and query are kept undecoded.
func (rr *RequestReader) Record(c echo.Context) model.RequestRecord {
	r := c.Request()
	ip := rr.clientIP(c)
	return model.RequestRecord{
		Path:      r.URL.EscapedPath(),
		Query:     r.URL.RawQuery,
		Method:    r.Method,
		UserAgent: r.UserAgent(),
		IP:        ip,
		Country:   rr.country(r, ip),
		Timestamp: rr.now().UnixMilli(),
	}
}

func (rr *RequestReader) now() time.Time {
	if rr.Now != nil {
		return rr.Now()
	}
	return time.Now()
}

func (rr *RequestReader) clientIP(c echo.Context) string {
	if h := rr.Config.IPHeader; h != "" {
		if ip := strings.TrimSpace(c.Request().Header.Get(h)); ip != "" {
			return ip
		}
	}
	return c.RealIP()
}

func (rr *RequestReader) country(r *http.Request, ip string) string {
	if h := rr.Config.CountryHeader; h != "" {
		if cc := strings.TrimSpace(r.Header.Get(h)); cc != "" {
			return strings.ToUpper(cc)
		}
	}
	if rr.Geo == nil {
		return ""
	}
	return rr.Geo.Country(ip)
}

// Reputation reads the edge bot score, clamped to 0..100. A missing or
// malformed header yields the configured neutral default.
func (rr *RequestReader) Reputation(r *http.Request) int {
	def := rr.Config.DefaultReputation
	h := rr.Config.BotScoreHeader
	if h == "" {
		return def
	}
	raw := strings.TrimSpace(r.Header.Get(h))
	if raw == "" {
		return def
	}
	score, err := strconv.Atoi(raw)
	if err != nil {
		return def
	}
	return min(max(score, 0), 100)
}
