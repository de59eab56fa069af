package http

import (
	"fmt"
	"net/http"
	"regexp"
	"strings"

	"github.com/gin-gonic/gin"
)

// Query parameter kinds usable in a variant pattern.
var queryKinds = map[string]*regexp.Regexp{
	"int": regexp.MustCompile(`^-?\d+$`),
	"str": regexp.MustCompile(`^[a-zA-Z_]+$`),
	"*":   regexp.MustCompile(`(?s)^.*$`),
}

type queryVariant struct {
	pattern     string
	constraints map[string]*regexp.Regexp
	handler     gin.HandlerFunc
}

// queryRoutes dispatches one path to handlers chosen by typed query
// parameters, e.g. "?id=int" or "?name=str&age=int". Variants are tried in
// the order they were added and the first whose constraints all hold wins.
type queryRoutes struct {
	variants []queryVariant
	fallback gin.HandlerFunc
}

func newQueryRoutes(fallback gin.HandlerFunc) *queryRoutes {
	return &queryRoutes{fallback: fallback}
}

// on registers a variant. It panics on a malformed pattern, like gin does
// for malformed paths.
func (q *queryRoutes) on(pattern string, handler gin.HandlerFunc) *queryRoutes {
	constraints, err := parseQueryPattern(pattern)
	if err != nil {
		panic(err)
	}
	q.variants = append(q.variants, queryVariant{
		pattern:     pattern,
		constraints: constraints,
		handler:     handler,
	})
	return q
}

func parseQueryPattern(pattern string) (map[string]*regexp.Regexp, error) {
	raw := strings.TrimPrefix(pattern, "?")
	if raw == "" {
		return nil, fmt.Errorf("empty query pattern %q", pattern)
	}
	constraints := make(map[string]*regexp.Regexp)
	for _, part := range strings.Split(raw, "&") {
		key, kind, ok := strings.Cut(part, "=")
		if !ok || key == "" {
			return nil, fmt.Errorf("query pattern %q: malformed segment %q", pattern, part)
		}
		re, known := queryKinds[kind]
		if !known {
			return nil, fmt.Errorf("query pattern %q: unknown kind %q", pattern, kind)
		}
		constraints[key] = re
	}
	return constraints, nil
}

func (v queryVariant) matches(c *gin.Context) bool {
	for key, re := range v.constraints {
		value, ok := c.GetQuery(key)
		if !ok || !re.MatchString(value) {
			return false
		}
	}
	return true
}

// handle is the gin handler for the path. Requests that carry a constrained
// key but match no variant are rejected rather than falling back.
func (q *queryRoutes) handle(c *gin.Context) {
	for _, v := range q.variants {
		if v.matches(c) {
			v.handler(c)
			return
		}
	}
	for _, v := range q.variants {
		for key := range v.constraints {
			if _, ok := c.GetQuery(key); ok {
				c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("invalid query parameter %q", key)})
				return
			}
		}
	}
	q.fallback(c)
}
