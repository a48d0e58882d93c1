package swagger

import "github.com/swaggo/swag"

const docTemplate = `{
    "swagger": "2.0",
    "info": {
        "title": "Availability API",
        "description": "Availability slots with overlap detection and merge policies",
        "version": "1.0.0"
    },
    "basePath": "/api/v1",
    "schemes": [
        "http"
    ],
    "tags": [
        {"name": "Availability", "description": "Availability slots and conflict resolution"},
        {"name": "Operations", "description": "Health, readiness and metrics"}
    ],
    "parameters": {
        "TenantHeader": {"name": "X-Tenant-ID", "in": "header", "type": "string", "description": "Ambient tenant; wins over tenantId in the body or query"},
        "OrganizationHeader": {"name": "X-Organization-ID", "in": "header", "type": "string"},
        "Relations": {"name": "relations", "in": "query", "type": "string", "description": "Comma separated: employee,organization"}
    },
    "paths": {
        "/availability-slots": {
            "get": {
                "tags": ["Availability"],
                "summary": "List availability slots",
                "parameters": [
                    {"$ref": "#/parameters/TenantHeader"},
                    {"name": "tenantId", "in": "query", "type": "string"},
                    {"name": "organizationId", "in": "query", "type": "string"},
                    {"name": "employeeId", "in": "query", "type": "string"},
                    {"name": "type", "in": "query", "type": "string"},
                    {"name": "from", "in": "query", "type": "string", "format": "date-time"},
                    {"name": "to", "in": "query", "type": "string", "format": "date-time"},
                    {"$ref": "#/parameters/Relations"},
                    {"name": "page", "in": "query", "type": "integer"},
                    {"name": "limit", "in": "query", "type": "integer"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "400": {"description": "Tenant required or invalid filter", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            },
            "post": {
                "tags": ["Availability"],
                "summary": "Create availability slot",
                "description": "Resolves overlaps with existing slots of the same employee, organization and type using mergePolicy (SKIP, MERGE or REPLACE).",
                "parameters": [
                    {"$ref": "#/parameters/TenantHeader"},
                    {"$ref": "#/parameters/OrganizationHeader"},
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/CreateAvailabilitySlotRequest"}}
                ],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "200": {"description": "Skipped because of conflicts", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "400": {"description": "Invalid interval, validation error or tenant required", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/availability-slots/bulk": {
            "post": {
                "tags": ["Availability"],
                "summary": "Bulk insert availability slots",
                "description": "Inserts slots without conflict checks. With async=true the import is queued.",
                "parameters": [
                    {"$ref": "#/parameters/TenantHeader"},
                    {"$ref": "#/parameters/OrganizationHeader"},
                    {"name": "async", "in": "query", "type": "boolean"},
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/BulkCreateAvailabilitySlotRequest"}}
                ],
                "responses": {
                    "201": {"description": "Inserted", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "202": {"description": "Queued", "schema": {"$ref": "#/definitions/BulkImportAccepted"}},
                    "503": {"description": "Import queue disabled or full", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/availability-slots/imports/{jobId}": {
            "get": {
                "tags": ["Availability"],
                "summary": "Bulk import status",
                "parameters": [
                    {"name": "jobId", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ImportStatus"}},
                    "404": {"description": "Unknown job", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/availability-slots/conflicts": {
            "get": {
                "tags": ["Availability"],
                "summary": "Preview conflicts",
                "description": "Lists the slots a write of the given interval would conflict with. Omitting the organization searches all organizations of the tenant.",
                "parameters": [
                    {"$ref": "#/parameters/TenantHeader"},
                    {"$ref": "#/parameters/OrganizationHeader"},
                    {"name": "organizationId", "in": "query", "type": "string"},
                    {"name": "employeeId", "in": "query", "type": "string"},
                    {"name": "type", "in": "query", "type": "string"},
                    {"name": "startTime", "in": "query", "required": true, "type": "string", "format": "date-time"},
                    {"name": "endTime", "in": "query", "required": true, "type": "string", "format": "date-time"},
                    {"name": "excludeId", "in": "query", "type": "string"},
                    {"$ref": "#/parameters/Relations"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/availability-slots/{id}": {
            "get": {
                "tags": ["Availability"],
                "summary": "Get availability slot",
                "parameters": [
                    {"$ref": "#/parameters/TenantHeader"},
                    {"name": "id", "in": "path", "required": true, "type": "string"},
                    {"$ref": "#/parameters/Relations"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "404": {"description": "Not found", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            },
            "put": {
                "tags": ["Availability"],
                "summary": "Overwrite availability slot",
                "description": "Replaces every field of the slot. Conflicts are resolved as on create with the slot itself excluded.",
                "parameters": [
                    {"$ref": "#/parameters/TenantHeader"},
                    {"$ref": "#/parameters/OrganizationHeader"},
                    {"name": "id", "in": "path", "required": true, "type": "string"},
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/CreateAvailabilitySlotRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "404": {"description": "Not found", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            },
            "delete": {
                "tags": ["Availability"],
                "summary": "Delete availability slot",
                "parameters": [
                    {"$ref": "#/parameters/TenantHeader"},
                    {"name": "id", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "204": {"description": "Deleted"},
                    "404": {"description": "Not found", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/health": {
            "get": {
                "tags": ["Operations"],
                "summary": "Health check",
                "responses": {
                    "200": {"description": "OK"}
                }
            }
        },
        "/ready": {
            "get": {
                "tags": ["Operations"],
                "summary": "Readiness check",
                "responses": {
                    "200": {"description": "Ready"},
                    "503": {"description": "A dependency is unreachable"}
                }
            }
        },
        "/metrics": {
            "get": {
                "tags": ["Operations"],
                "summary": "Prometheus metrics",
                "produces": ["text/plain"],
                "responses": {
                    "200": {"description": "OK"}
                }
            }
        }
    },
    "definitions": {
        "CreateAvailabilitySlotRequest": {
            "type": "object",
            "properties": {
                "tenantId": {"type": "string"},
                "organizationId": {"type": "string"},
                "employeeId": {"type": "string"},
                "startTime": {"type": "string", "format": "date-time"},
                "endTime": {"type": "string", "format": "date-time"},
                "allDay": {"type": "boolean"},
                "type": {"type": "string", "example": "Default"},
                "mergePolicy": {"type": "string", "enum": ["SKIP", "MERGE", "REPLACE"]}
            },
            "required": ["startTime", "endTime"]
        },
        "BulkAvailabilitySlotItem": {
            "type": "object",
            "properties": {
                "organizationId": {"type": "string"},
                "employeeId": {"type": "string"},
                "startTime": {"type": "string", "format": "date-time"},
                "endTime": {"type": "string", "format": "date-time"},
                "allDay": {"type": "boolean"},
                "type": {"type": "string"}
            },
            "required": ["startTime", "endTime"]
        },
        "BulkCreateAvailabilitySlotRequest": {
            "type": "object",
            "properties": {
                "tenantId": {"type": "string"},
                "items": {
                    "type": "array",
                    "items": {"$ref": "#/definitions/BulkAvailabilitySlotItem"}
                }
            },
            "required": ["items"]
        },
        "AvailabilitySlot": {
            "type": "object",
            "properties": {
                "id": {"type": "string"},
                "tenantId": {"type": "string"},
                "organizationId": {"type": "string"},
                "employeeId": {"type": "string"},
                "startTime": {"type": "string", "format": "date-time"},
                "endTime": {"type": "string", "format": "date-time"},
                "allDay": {"type": "boolean"},
                "type": {"type": "string"},
                "createdAt": {"type": "string", "format": "date-time"},
                "updatedAt": {"type": "string", "format": "date-time"},
                "employee": {"type": "object", "properties": {"id": {"type": "string"}, "fullName": {"type": "string"}}},
                "organization": {"type": "object", "properties": {"id": {"type": "string"}, "name": {"type": "string"}}}
            }
        },
        "AvailabilitySlotResult": {
            "type": "object",
            "properties": {
                "slot": {"$ref": "#/definitions/AvailabilitySlot"},
                "created": {"type": "boolean"},
                "policy": {"type": "string"},
                "deletedIds": {"type": "array", "items": {"type": "string"}}
            }
        },
        "BulkImportAccepted": {
            "type": "object",
            "properties": {
                "jobId": {"type": "string"},
                "items": {"type": "integer"}
            }
        },
        "ImportStatus": {
            "type": "object",
            "properties": {
                "jobId": {"type": "string"},
                "type": {"type": "string"},
                "state": {"type": "string", "enum": ["queued", "running", "retrying", "succeeded", "failed"]},
                "attempt": {"type": "integer"},
                "error": {"type": "string"},
                "updatedAt": {"type": "string", "format": "date-time"}
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
