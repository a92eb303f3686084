// Package docs registers the OpenAPI description served at /api/swagger.
// Regenerate with: swag init -g cmd/server/main.go -o docs
package docs

import "github.com/swaggo/swag"

const docTemplate = `{
    "schemes": {{ marshal .Schemes }},
    "swagger": "2.0",
    "info": {
        "description": "{{escape .Description}}",
        "title": "{{.Title}}",
        "contact": {},
        "version": "{{.Version}}"
    },
    "host": "{{.Host}}",
    "basePath": "{{.BasePath}}",
    "securityDefinitions": {
        "BearerAuth": {"type": "apiKey", "name": "Authorization", "in": "header"}
    },
    "paths": {
        "/clients": {"post": {"tags": ["clients"], "summary": "Register a client", "responses": {"201": {"description": "Created"}}}},
        "/session": {"get": {"tags": ["session"], "summary": "Current session", "security": [{"BearerAuth": []}], "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/models.SessionState"}}}}},
        "/session/signin": {"post": {"tags": ["session"], "summary": "Sign in", "security": [{"BearerAuth": []}], "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/models.SessionState"}}, "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/models.ErrorResponse"}}}}},
        "/session/signup": {"post": {"tags": ["session"], "summary": "Sign up", "security": [{"BearerAuth": []}], "responses": {"201": {"description": "Created", "schema": {"$ref": "#/definitions/models.SessionState"}}, "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/models.ErrorResponse"}}}}},
        "/session/signout": {"post": {"tags": ["session"], "summary": "Sign out", "security": [{"BearerAuth": []}], "responses": {"200": {"description": "OK"}}}},
        "/session/profile": {"put": {"tags": ["session"], "summary": "Update profile", "security": [{"BearerAuth": []}], "responses": {"200": {"description": "OK"}, "400": {"description": "Bad Request"}, "409": {"description": "Conflict"}}}},
        "/videos": {"get": {"tags": ["catalog"], "summary": "List videos by category", "security": [{"BearerAuth": []}], "parameters": [{"type": "string", "default": "all", "name": "category", "in": "query"}], "responses": {"200": {"description": "OK", "schema": {"type": "array", "items": {"$ref": "#/definitions/models.Video"}}}}}},
        "/videos/{id}": {"get": {"tags": ["catalog"], "summary": "Video detail", "security": [{"BearerAuth": []}], "parameters": [{"type": "string", "name": "id", "in": "path", "required": true}], "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/models.Video"}}, "404": {"description": "Not Found"}}}},
        "/videos/{id}/like": {"post": {"tags": ["library"], "summary": "Toggle a like", "security": [{"BearerAuth": []}], "parameters": [{"type": "string", "name": "id", "in": "path", "required": true}], "responses": {"200": {"description": "OK"}, "401": {"description": "Unauthorized"}}}},
        "/videos/{id}/save": {"post": {"tags": ["library"], "summary": "Toggle watch later", "security": [{"BearerAuth": []}], "parameters": [{"type": "string", "name": "id", "in": "path", "required": true}], "responses": {"200": {"description": "OK"}, "401": {"description": "Unauthorized"}}}},
        "/search": {"get": {"tags": ["catalog"], "summary": "Search videos", "security": [{"BearerAuth": []}], "parameters": [{"type": "string", "name": "q", "in": "query"}], "responses": {"200": {"description": "OK", "schema": {"type": "array", "items": {"$ref": "#/definitions/models.Video"}}}}}},
        "/categories": {"get": {"tags": ["catalog"], "summary": "Explore categories", "responses": {"200": {"description": "OK"}}}},
        "/history": {"post": {"tags": ["library"], "summary": "Record a watched video", "security": [{"BearerAuth": []}], "responses": {"200": {"description": "OK"}, "400": {"description": "Bad Request"}}}},
        "/library/{list}": {"get": {"tags": ["library"], "summary": "Read a persisted list", "security": [{"BearerAuth": []}], "parameters": [{"type": "string", "name": "list", "in": "path", "required": true}], "responses": {"200": {"description": "OK"}, "404": {"description": "Not Found"}}}},
        "/routes/resolve": {"get": {"tags": ["routes"], "summary": "Resolve a client path", "parameters": [{"type": "string", "name": "path", "in": "query", "required": true}], "responses": {"200": {"description": "OK"}}}},
        "/feature-flags": {"get": {"tags": ["flags"], "summary": "Feature flags", "security": [{"BearerAuth": []}], "responses": {"200": {"description": "OK"}}}},
        "/ws": {"get": {"tags": ["live"], "summary": "Live view channel", "parameters": [{"type": "string", "name": "token", "in": "query", "required": true}], "responses": {"101": {"description": "Switching Protocols"}}}}
    },
    "definitions": {
        "models.ErrorResponse": {"type": "object", "properties": {"error": {"type": "string"}, "code": {"type": "string"}, "details": {"type": "string"}}},
        "models.Identity": {"type": "object", "properties": {"id": {"type": "string"}, "email": {"type": "string"}, "username": {"type": "string"}, "bio": {"type": "string"}, "avatarUrl": {"type": "string"}}},
        "models.SessionState": {"type": "object", "properties": {"authenticated": {"type": "boolean"}, "identity": {"$ref": "#/definitions/models.Identity"}}},
        "models.Video": {"type": "object", "properties": {"id": {"type": "string"}, "title": {"type": "string"}, "thumbnail": {"type": "string"}, "channelName": {"type": "string"}, "channelAvatar": {"type": "string"}, "views": {"type": "integer"}, "uploadedAt": {"type": "string"}, "duration": {"type": "string"}, "isLive": {"type": "boolean"}}}
    }
}`

// SwaggerInfo holds exported Swagger Info so clients can modify it
var SwaggerInfo = &swag.Spec{
	Version:          "1.0",
	Host:             "",
	BasePath:         "/api",
	Schemes:          []string{},
	Title:            "tubeclone API",
	Description:      "Session store, catalog simulator and live view channel of a video-sharing client.",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
	LeftDelim:        "{{",
	RightDelim:       "}}",
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}
