package server

import (
	"strings"
	"sync"

	"github.com/labstack/echo/v4"
)

// Route names reported to logs and APM.
const (
	RouteHoneypot  = "honeypot"
	RouteHealth    = "health"
	RouteStats     = "stats"
	RouteMonitor   = "ws"
	RouteDashboard = "dashboard"
)

type route struct {
	name    string
	handler echo.HandlerFunc
}

type markerRoute struct {
	marker string
	route
}

// Dispatcher routes every request by the final segment of its path. Paths
// containing a registered marker win over segment routes; anything unmatched
// goes to the fallback.
type Dispatcher struct {
	mu       sync.RWMutex
	segments map[string]route
	markers  []markerRoute
	fallback route
}

// NewDispatcher returns a Dispatcher sending unmatched requests to fallback.
func NewDispatcher(fallbackName string, fallback echo.HandlerFunc) *Dispatcher {
	return &Dispatcher{
		segments: make(map[string]route),
		fallback: route{name: fallbackName, handler: fallback},
	}
}

// Mount registers a handler for a final path segment ("" is the root).
func (d *Dispatcher) Mount(segment, name string, h echo.HandlerFunc) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.segments[strings.Trim(segment, "/")] = route{name: name, handler: h}
}

// MountMarker registers a handler for any path containing marker.
func (d *Dispatcher) MountMarker(marker, name string, h echo.HandlerFunc) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.markers = append(d.markers, markerRoute{marker: marker, route: route{name: name, handler: h}})
}

// Resolve picks the route for a request path.
func (d *Dispatcher) Resolve(path string) (string, echo.HandlerFunc) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	for _, m := range d.markers {
		if m.marker != "" && strings.Contains(path, m.marker) {
			return m.name, m.handler
		}
	}
	if r, ok := d.segments[FinalSegment(path)]; ok {
		return r.name, r.handler
	}
	return d.fallback.name, d.fallback.handler
}

// Handle dispatches the request.
func (d *Dispatcher) Handle(c echo.Context) error {
	name, h := d.Resolve(c.Request().URL.Path)
	c.Set(routeKey, name)
	return h(c)
}

// FinalSegment returns the last path segment. Only the bare root yields "";
// a trailing slash is ignored, so "/wp-admin/" yields "wp-admin".
func FinalSegment(path string) string {
	path = strings.TrimRight(path, "/")
	if i := strings.LastIndexByte(path, '/'); i >= 0 {
		return path[i+1:]
	}
	return path
}
