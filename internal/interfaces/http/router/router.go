package router

import (
	"net/http"
	"path"

	"github.com/gin-gonic/gin"
)

// APIBasePath prefixes every versioned route
const APIBasePath = "/api/v1"

// Route describes one registered endpoint
type Route struct {
	Group  string
	Method string
	Path   string
}

// DomainGroup collects the routes of one API area with its shared middleware.
// Groups are declared first and mounted once, so the whole table can be
// inspected before gin sees it.
type DomainGroup struct {
	name       string
	prefix     string
	middleware []gin.HandlerFunc
	routes     []groupRoute
	subgroups  []*DomainGroup
}

type groupRoute struct {
	method   string
	path     string
	handlers []gin.HandlerFunc
}

// NewDomainGroup starts a group mounted at prefix below its parent
func NewDomainGroup(name, prefix string) *DomainGroup {
	return &DomainGroup{name: name, prefix: prefix}
}

// Use adds group middleware. Nil handlers are dropped so optional guards can
// be passed unconditionally.
func (dg *DomainGroup) Use(middleware ...gin.HandlerFunc) *DomainGroup {
	dg.middleware = append(dg.middleware, withoutNil(middleware)...)
	return dg
}

// Handle adds a route; nil handlers are dropped as in Use
func (dg *DomainGroup) Handle(method, relativePath string, handlers ...gin.HandlerFunc) *DomainGroup {
	dg.routes = append(dg.routes, groupRoute{method: method, path: relativePath, handlers: withoutNil(handlers)})
	return dg
}

func (dg *DomainGroup) GET(relativePath string, handlers ...gin.HandlerFunc) *DomainGroup {
	return dg.Handle(http.MethodGet, relativePath, handlers...)
}

func (dg *DomainGroup) POST(relativePath string, handlers ...gin.HandlerFunc) *DomainGroup {
	return dg.Handle(http.MethodPost, relativePath, handlers...)
}

func (dg *DomainGroup) PATCH(relativePath string, handlers ...gin.HandlerFunc) *DomainGroup {
	return dg.Handle(http.MethodPatch, relativePath, handlers...)
}

func (dg *DomainGroup) DELETE(relativePath string, handlers ...gin.HandlerFunc) *DomainGroup {
	return dg.Handle(http.MethodDelete, relativePath, handlers...)
}

// Group adds a subgroup that inherits this group's middleware
func (dg *DomainGroup) Group(name, prefix string) *DomainGroup {
	sub := NewDomainGroup(name, prefix)
	dg.subgroups = append(dg.subgroups, sub)
	return sub
}

// Routes lists the endpoints of the group and its subgroups below base
func (dg *DomainGroup) Routes(base string) []Route {
	prefix := joinPath(base, dg.prefix)
	routes := make([]Route, 0, len(dg.routes))
	for _, r := range dg.routes {
		routes = append(routes, Route{Group: dg.name, Method: r.method, Path: joinPath(prefix, r.path)})
	}
	for _, sub := range dg.subgroups {
		routes = append(routes, sub.Routes(prefix)...)
	}
	return routes
}

func (dg *DomainGroup) mount(rg *gin.RouterGroup) {
	group := rg.Group(dg.prefix, dg.middleware...)
	for _, r := range dg.routes {
		group.Handle(r.method, r.path, r.handlers...)
	}
	for _, sub := range dg.subgroups {
		sub.mount(group)
	}
}

// Mount registers groups on engine below base and returns the route table
func Mount(engine *gin.Engine, base string, groups ...*DomainGroup) []Route {
	api := engine.Group(base)
	var table []Route
	for _, g := range groups {
		g.mount(api)
		table = append(table, g.Routes(base)...)
	}
	return table
}

// joinPath joins like gin does: a trailing slash on relative is kept
func joinPath(base, relative string) string {
	if relative == "" {
		return base
	}
	joined := path.Join(base, relative)
	if relative[len(relative)-1] == '/' && joined[len(joined)-1] != '/' {
		joined += "/"
	}
	return joined
}

func withoutNil(handlers []gin.HandlerFunc) []gin.HandlerFunc {
	out := make([]gin.HandlerFunc, 0, len(handlers))
	for _, h := range handlers {
		if h != nil {
			out = append(out, h)
		}
	}
	return out
}
