package docs

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type document struct {
	Paths map[string]map[string]struct {
		Security []map[string][]string `json:"security"`
	} `json:"paths"`
	Definitions map[string]json.RawMessage `json:"definitions"`
}

func load(t *testing.T) document {
	t.Helper()
	var doc document
	require.NoError(t, json.Unmarshal([]byte(SwaggerInfo.ReadDoc()), &doc))
	return doc
}

func TestDoc_CoversRoutes(t *testing.T) {
	doc := load(t)

	routes := map[string][]string{
		"/api/auth/register":                      {"post"},
		"/api/auth/login":                         {"post"},
		"/api/users/me":                           {"get"},
		"/api/admin/users/{id}/ban":               {"patch"},
		"/api/boards":                             {"get", "post"},
		"/api/boards/{boardId}":                   {"get", "put", "delete"},
		"/api/boards/{boardId}/columns":           {"post"},
		"/api/boards/{boardId}/members":           {"get"},
		"/api/boards/{boardId}/members/{userId}":  {"put", "delete"},
		"/api/boards/{boardId}/items":             {"get"},
		"/api/boards/{boardId}/invitations":       {"get"},
		"/api/columns/{boardId}/{columnId}":       {"put", "delete"},
		"/api/columns/{boardId}/{columnId}/items": {"post"},
		"/api/items/move":                         {"post"},
		"/api/items/{itemId}":                     {"get", "put", "delete"},
		"/api/items/{itemId}/subtasks":            {"post"},
		"/api/items/{itemId}/comments":            {"get", "post"},
		"/api/items/{itemId}/dependencies":        {"post"},
		"/api/items/{itemId}/attachments":         {"post"},
		"/api/subtasks/{subtaskId}":               {"patch"},
		"/api/dependencies/{dependencyId}":        {"delete"},
		"/api/attachments/{attachmentId}":         {"delete"},
		"/api/teams":                              {"get", "post"},
		"/api/teams/{teamId}":                     {"get", "delete"},
		"/api/teams/{teamId}/members":             {"get"},
		"/api/teams/{teamId}/members/{userId}":    {"put", "delete"},
		"/api/teams/{teamId}/invitations":         {"get"},
		"/api/board-invitations":                  {"post"},
		"/api/board-invitations/accept":           {"post"},
		"/api/team-invitations":                   {"post"},
		"/api/team-invitations/accept":            {"post"},
		"/api/invitations":                        {"get"},
		"/api/invitations/{id}":                   {"delete"},
		"/api/chat/{kind}/{id}/messages":          {"get", "post"},
		"/api/achievements":                       {"get"},
		"/api/users/me/achievements":              {"get"},
		"/api/health":                             {"get"},
		"/ws":                                     {"get"},
	}
	for path, methods := range routes {
		ops, ok := doc.Paths[path]
		if !assert.True(t, ok, path) {
			continue
		}
		for _, m := range methods {
			assert.Contains(t, ops, m, path)
		}
	}
	assert.Len(t, doc.Paths, len(routes))
}

func TestDoc_BearerAuthOnProtectedRoutes(t *testing.T) {
	doc := load(t)

	for path, ops := range doc.Paths {
		public := strings.HasPrefix(path, "/api/auth/") || path == "/api/health" || path == "/ws"
		for method, op := range ops {
			if public {
				assert.Empty(t, op.Security, method+" "+path)
			} else {
				assert.NotEmpty(t, op.Security, method+" "+path)
			}
		}
	}
}

func TestDoc_ReferencedDefinitionsExist(t *testing.T) {
	raw := SwaggerInfo.ReadDoc()
	doc := load(t)

	for _, part := range strings.Split(raw, `"#/definitions/`)[1:] {
		name := part[:strings.Index(part, `"`)]
		assert.Contains(t, doc.Definitions, name)
	}
	assert.Contains(t, doc.Definitions, "apperr.ErrorResponse")
}
