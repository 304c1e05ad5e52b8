package swagger

import "github.com/swaggo/swag"

const docTemplate = `{
    "swagger": "2.0",
    "info": {
        "title": "Academic Risk API",
        "description": "Warning lifecycle and risk aggregation service",
        "version": "0.1.0"
    },
    "basePath": "/api/v1",
    "schemes": [
        "http"
    ],
    "tags": [
        {"name": "Warnings", "description": "Warning lifecycle and search"},
        {"name": "Statistics", "description": "Dashboard totals, distribution and trends"}
    ],
    "paths": {
        "/health": {
            "get": {
                "summary": "Health check",
                "responses": {
                    "200": {"description": "OK"}
                }
            }
        },
        "/ready": {
            "get": {
                "summary": "Readiness check",
                "responses": {
                    "200": {"description": "Ready"}
                }
            }
        },
        "/warnings": {
            "get": {
                "tags": ["Warnings"],
                "summary": "Search warnings",
                "parameters": [
                    {"name": "studentName", "in": "query", "type": "string"},
                    {"name": "warningType", "in": "query", "type": "string"},
                    {"name": "status", "in": "query", "type": "string", "enum": ["NEW", "READ", "PROCESSED", "RESOLVED"]},
                    {"name": "page", "in": "query", "type": "integer", "description": "0-indexed page number"},
                    {"name": "pageSize", "in": "query", "type": "integer"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            },
            "post": {
                "tags": ["Warnings"],
                "summary": "Create warning",
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/CreateWarningRequest"}}
                ],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/warnings/types": {
            "get": {
                "tags": ["Warnings"],
                "summary": "Warning types represented by active rules",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/warnings/recent": {
            "get": {
                "tags": ["Warnings"],
                "summary": "Latest warnings",
                "parameters": [
                    {"name": "limit", "in": "query", "type": "integer"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/warnings/export": {
            "get": {
                "tags": ["Warnings"],
                "summary": "Export the filtered warning set",
                "parameters": [
                    {"name": "format", "in": "query", "type": "string", "enum": ["csv", "pdf"]},
                    {"name": "studentName", "in": "query", "type": "string"},
                    {"name": "warningType", "in": "query", "type": "string"},
                    {"name": "status", "in": "query", "type": "string"}
                ],
                "produces": ["text/csv", "application/pdf"],
                "responses": {
                    "200": {"description": "OK"}
                }
            }
        },
        "/warnings/student/{studentId}": {
            "get": {
                "tags": ["Warnings"],
                "summary": "Warnings of one student",
                "parameters": [
                    {"name": "studentId", "in": "path", "required": true, "type": "string"},
                    {"name": "page", "in": "query", "type": "integer", "description": "0-indexed page number"},
                    {"name": "pageSize", "in": "query", "type": "integer"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "404": {"description": "Student not found", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/warnings/{id}": {
            "get": {
                "tags": ["Warnings"],
                "summary": "Get warning",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "404": {"description": "Warning not found", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            },
            "put": {
                "tags": ["Warnings"],
                "summary": "Update warning content and rule reference",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"},
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/UpdateWarningRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "404": {"description": "Warning not found", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            },
            "delete": {
                "tags": ["Warnings"],
                "summary": "Delete warning",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "204": {"description": "No Content"},
                    "404": {"description": "Warning not found", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/warnings/{id}/resolve": {
            "post": {
                "tags": ["Warnings"],
                "summary": "Resolve warning",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"},
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/ResolveWarningRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "404": {"description": "Warning not found", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/statistics/dashboard": {
            "get": {
                "tags": ["Statistics"],
                "summary": "Headline dashboard totals",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/statistics/warnings/distribution": {
            "get": {
                "tags": ["Statistics"],
                "summary": "Warning counts per type",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/statistics/warnings/trends": {
            "get": {
                "tags": ["Statistics"],
                "summary": "Warning trend buckets, oldest first",
                "parameters": [
                    {"name": "period", "in": "query", "type": "string", "enum": ["day", "week", "month"]},
                    {"name": "windowSize", "in": "query", "type": "integer", "description": "Number of month buckets (month period only)"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        }
    },
    "definitions": {
        "CreateWarningRequest": {
            "type": "object",
            "required": ["student_id", "rule_id", "content"],
            "properties": {
                "student_id": {"type": "string"},
                "rule_id": {"type": "string"},
                "content": {"type": "string"}
            }
        },
        "UpdateWarningRequest": {
            "type": "object",
            "required": ["content"],
            "properties": {
                "content": {"type": "string"},
                "rule_id": {"type": "string"}
            }
        },
        "ResolveWarningRequest": {
            "type": "object",
            "required": ["solution"],
            "properties": {
                "solution": {"type": "string"}
            }
        },
        "Pagination": {
            "type": "object",
            "properties": {
                "page": {"type": "integer"},
                "page_size": {"type": "integer"},
                "total_count": {"type": "integer"}
            }
        },
        "APIError": {
            "type": "object",
            "properties": {
                "code": {"type": "string"},
                "message": {"type": "string"},
                "status": {"type": "integer"}
            }
        },
        "ResponseEnvelope": {
            "type": "object",
            "properties": {
                "data": {"type": "object"},
                "error": {"$ref": "#/definitions/APIError"},
                "pagination": {"$ref": "#/definitions/Pagination"},
                "meta": {"type": "object"}
            }
        }
    }
}`

type swaggerDoc struct{}

// ReadDoc returns the Swagger document.
func (s *swaggerDoc) ReadDoc() string {
	return docTemplate
}

func init() {
	swag.Register(swag.Name, &swaggerDoc{})
}
