// Package docs registers the OpenAPI description served under /swagger.
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
    "paths": {
        "/health": {"get": {"tags": ["system"], "summary": "Health check", "responses": {"200": {"description": "OK"}}}},
        "/auth/sign-up": {"post": {"tags": ["auth"], "summary": "Sign up", "consumes": ["application/json"], "parameters": [{"in": "body", "name": "body", "required": true, "schema": {"$ref": "#/definitions/credentials"}}], "responses": {"200": {"description": "OK"}, "400": {"description": "Bad Request"}, "409": {"description": "Conflict"}}}},
        "/auth/sign-in": {"post": {"tags": ["auth"], "summary": "Sign in", "consumes": ["application/json"], "parameters": [{"in": "body", "name": "body", "required": true, "schema": {"$ref": "#/definitions/credentials"}}], "responses": {"200": {"description": "OK"}, "401": {"description": "Unauthorized"}}}},
        "/api/v1/valves": {"get": {"security": [{"BearerAuth": []}], "tags": ["valves"], "summary": "List valves", "responses": {"200": {"description": "OK"}}}},
        "/api/v1/valves/{id}/open": {"post": {"security": [{"BearerAuth": []}], "tags": ["valves"], "summary": "Open valve", "parameters": [{"in": "path", "name": "id", "type": "string", "required": true}], "responses": {"200": {"description": "OK"}, "404": {"description": "Not Found"}}}},
        "/api/v1/valves/{id}/close": {"post": {"security": [{"BearerAuth": []}], "tags": ["valves"], "summary": "Close valve", "parameters": [{"in": "path", "name": "id", "type": "string", "required": true}], "responses": {"200": {"description": "OK"}, "404": {"description": "Not Found"}}}},
        "/api/v1/valves/{id}/toggle": {"post": {"security": [{"BearerAuth": []}], "tags": ["valves"], "summary": "Toggle valve", "parameters": [{"in": "path", "name": "id", "type": "string", "required": true}], "responses": {"200": {"description": "OK"}, "404": {"description": "Not Found"}}}},
        "/api/v1/valves/open-all": {"post": {"security": [{"BearerAuth": []}], "tags": ["valves"], "summary": "Open all valves", "responses": {"200": {"description": "OK"}}}},
        "/api/v1/valves/close-all": {"post": {"security": [{"BearerAuth": []}], "tags": ["valves"], "summary": "Close all valves", "responses": {"200": {"description": "OK"}}}},
        "/api/v1/valves/reset": {"post": {"security": [{"BearerAuth": []}], "tags": ["valves"], "summary": "Reset valves", "responses": {"200": {"description": "OK"}}}},
        "/api/v1/scripts": {"get": {"security": [{"BearerAuth": []}], "tags": ["scripts"], "summary": "List scripts", "responses": {"200": {"description": "OK"}}}},
        "/api/v1/scripts/validate": {"post": {"security": [{"BearerAuth": []}], "tags": ["scripts"], "summary": "Validate script", "consumes": ["application/json", "text/plain"], "parameters": [{"in": "body", "name": "body", "required": true, "schema": {"$ref": "#/definitions/handlers.ScriptRequest"}}], "responses": {"200": {"description": "OK"}, "400": {"description": "Bad Request"}}}},
        "/api/v1/scripts/{name}": {
            "get": {"security": [{"BearerAuth": []}], "tags": ["scripts"], "summary": "Get script", "parameters": [{"in": "path", "name": "name", "type": "string", "required": true}], "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/models.StoredScript"}}, "404": {"description": "Not Found"}}},
            "put": {"security": [{"BearerAuth": []}], "tags": ["scripts"], "summary": "Save script", "consumes": ["application/json", "text/plain"], "parameters": [{"in": "path", "name": "name", "type": "string", "required": true}, {"in": "body", "name": "body", "required": true, "schema": {"$ref": "#/definitions/handlers.ScriptRequest"}}], "responses": {"200": {"description": "OK"}, "400": {"description": "Bad Request"}}},
            "delete": {"security": [{"BearerAuth": []}], "tags": ["scripts"], "summary": "Delete script", "parameters": [{"in": "path", "name": "name", "type": "string", "required": true}], "responses": {"200": {"description": "OK"}, "404": {"description": "Not Found"}}}
        },
        "/api/v1/run/load": {"post": {"security": [{"BearerAuth": []}], "tags": ["run"], "summary": "Load script", "consumes": ["application/json"], "parameters": [{"in": "body", "name": "body", "required": true, "schema": {"$ref": "#/definitions/handlers.LoadRequest"}}], "responses": {"200": {"description": "OK"}, "400": {"description": "Bad Request"}, "404": {"description": "Not Found"}, "409": {"description": "Conflict"}}}},
        "/api/v1/run/start-pause": {"post": {"security": [{"BearerAuth": []}], "tags": ["run"], "summary": "Start or pause", "responses": {"200": {"description": "OK"}, "409": {"description": "Conflict"}}}},
        "/api/v1/run/skip": {"post": {"security": [{"BearerAuth": []}], "tags": ["run"], "summary": "Skip step", "responses": {"200": {"description": "OK"}, "409": {"description": "Conflict"}}}},
        "/api/v1/run/stop": {"post": {"security": [{"BearerAuth": []}], "tags": ["run"], "summary": "Stop run", "responses": {"200": {"description": "OK"}, "409": {"description": "Conflict"}}}},
        "/api/v1/run/unload": {"post": {"security": [{"BearerAuth": []}], "tags": ["run"], "summary": "Unload script", "responses": {"200": {"description": "OK"}, "409": {"description": "Conflict"}}}},
        "/api/v1/run/status": {"get": {"security": [{"BearerAuth": []}], "tags": ["run"], "summary": "Run status", "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/models.RunStatus"}}}}},
        "/api/v1/logs": {"get": {"security": [{"BearerAuth": []}], "tags": ["logs"], "summary": "List run events", "parameters": [
            {"in": "query", "name": "from", "type": "string"},
            {"in": "query", "name": "to", "type": "string"},
            {"in": "query", "name": "type", "type": "string", "enum": ["open", "close", "pause", "pump", "state", "t_e", "t_n", "terminate"]},
            {"in": "query", "name": "session", "type": "string"},
            {"in": "query", "name": "limit", "type": "integer"}
        ], "responses": {"200": {"description": "OK"}, "400": {"description": "Bad Request"}}}},
        "/ws": {"get": {"tags": ["run"], "summary": "Run status stream", "responses": {"101": {"description": "Switching Protocols"}}}}
    },
    "definitions": {
        "credentials": {"type": "object", "required": ["username", "password"], "properties": {"username": {"type": "string"}, "password": {"type": "string"}}},
        "handlers.ScriptRequest": {"type": "object", "properties": {"text": {"type": "string", "example": "open waste\nwait 5 s\nclose waste"}}},
        "handlers.LoadRequest": {"type": "object", "properties": {"name": {"type": "string", "example": "prime"}, "text": {"type": "string"}}},
        "models.StoredScript": {"type": "object", "properties": {"name": {"type": "string"}, "body": {"type": "string"}, "steps": {"type": "integer"}, "expected_seconds": {"type": "integer"}, "updated_at": {"type": "string"}}},
        "models.RunStatus": {"type": "object", "properties": {
            "session_id": {"type": "string"}, "script_name": {"type": "string"}, "loaded": {"type": "boolean"},
            "state": {"type": "string", "enum": ["idle", "running", "paused"]}, "current_step": {"type": "string"},
            "steps_left": {"type": "integer"}, "steps": {"type": "array", "items": {"type": "string"}},
            "expected_seconds": {"type": "integer"}, "elapsed_seconds": {"type": "integer"}, "remaining_seconds": {"type": "integer"},
            "step_elapsed_seconds": {"type": "integer"}, "step_remaining_seconds": {"type": "integer"},
            "valves": {"type": "object", "additionalProperties": {"type": "string"}}, "updated_at": {"type": "string"}
        }}
    },
    "securityDefinitions": {
        "BearerAuth": {"type": "apiKey", "name": "Authorization", "in": "header"}
    }
}`

// SwaggerInfo holds exported Swagger Info so clients can modify it
var SwaggerInfo = &swag.Spec{
	Version:          "1.0",
	Host:             "",
	BasePath:         "/",
	Schemes:          []string{},
	Title:            "Fluidics controller API",
	Description:      "Valve control, script storage and script runs for a fluidics rig.",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}
