package swagger

import "github.com/swaggo/swag"

const docTemplate = `{
    "swagger": "2.0",
    "info": {
        "title": "Consultoria API",
        "description": "Student management for a training consultancy: records, bulk import, export and statistics.",
        "version": "1.0.0"
    },
    "basePath": "/api/v1",
    "schemes": [
        "http"
    ],
    "tags": [
        {"name": "Students", "description": "Student records, bulk import and template"},
        {"name": "Exports", "description": "CSV, XLSX and PDF exports, synchronous or queued"},
        {"name": "Stats", "description": "Dashboard statistics"},
        {"name": "Reports", "description": "Expiry and payment reports"},
        {"name": "Lookups", "description": "Plan types, training phases and payment methods"}
    ],
    "paths": {
        "/students": {
            "get": {
                "tags": ["Students"],
                "summary": "List students",
                "parameters": [
                    {"name": "name", "in": "query", "type": "string"},
                    {"name": "planTypeId", "in": "query", "type": "string"},
                    {"name": "paymentStatus", "in": "query", "type": "string", "enum": ["Pendente", "Pago", "Vencido"]},
                    {"name": "trainingStatus", "in": "query", "type": "string", "enum": ["Não Iniciado", "Em Andamento", "Completado"]},
                    {"name": "trainingPhaseId", "in": "query", "type": "string"},
                    {"name": "page", "in": "query", "type": "integer"},
                    {"name": "page_size", "in": "query", "type": "integer"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            },
            "post": {
                "tags": ["Students"],
                "summary": "Create student",
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/StudentRequest"}}
                ],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "400": {"description": "Validation error", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/students/{id}": {
            "get": {
                "tags": ["Students"],
                "summary": "Get student",
                "parameters": [{"name": "id", "in": "path", "required": true, "type": "string"}],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "404": {"description": "Not found", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            },
            "put": {
                "tags": ["Students"],
                "summary": "Update student",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"},
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/StudentRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            },
            "delete": {
                "tags": ["Students"],
                "summary": "Delete student",
                "parameters": [{"name": "id", "in": "path", "required": true, "type": "string"}],
                "responses": {
                    "204": {"description": "Deleted"}
                }
            }
        },
        "/students/import": {
            "post": {
                "tags": ["Students"],
                "summary": "Import students from CSV or XLSX",
                "consumes": ["multipart/form-data"],
                "parameters": [
                    {"name": "file", "in": "formData", "required": true, "type": "file"}
                ],
                "responses": {
                    "200": {"description": "Import result", "schema": {"$ref": "#/definitions/ImportResult"}},
                    "400": {"description": "No file or unreadable file", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "413": {"description": "File too large", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "415": {"description": "Unsupported format", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/students/import/template": {
            "get": {
                "tags": ["Students"],
                "summary": "Download the import template",
                "produces": ["text/csv", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"],
                "parameters": [
                    {"name": "format", "in": "query", "type": "string", "enum": ["csv", "xlsx"]}
                ],
                "responses": {
                    "200": {"description": "Template file", "schema": {"type": "file"}}
                }
            }
        },
        "/students/export": {
            "get": {
                "tags": ["Exports"],
                "summary": "Export students",
                "produces": ["text/csv", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", "application/pdf"],
                "parameters": [
                    {"name": "type", "in": "query", "type": "string", "enum": ["all", "active", "expiring", "paid", "pending", "overdue"]},
                    {"name": "format", "in": "query", "type": "string", "enum": ["csv", "xlsx", "pdf"]}
                ],
                "responses": {
                    "200": {"description": "Export file", "schema": {"type": "file"}},
                    "400": {"description": "Invalid filter or format", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/exports": {
            "post": {
                "tags": ["Exports"],
                "summary": "Queue an asynchronous export",
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/ExportJobRequest"}}
                ],
                "responses": {
                    "202": {"description": "Accepted", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "404": {"description": "Export jobs disabled", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/exports/{id}": {
            "get": {
                "tags": ["Exports"],
                "summary": "Export job status",
                "parameters": [{"name": "id", "in": "path", "required": true, "type": "string"}],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/exports/download/{token}": {
            "get": {
                "tags": ["Exports"],
                "summary": "Download a finished export",
                "parameters": [{"name": "token", "in": "path", "required": true, "type": "string"}],
                "responses": {
                    "200": {"description": "Export file", "schema": {"type": "file"}},
                    "404": {"description": "Invalid or expired token", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/stats": {
            "get": {
                "tags": ["Stats"],
                "summary": "Student statistics snapshot",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/reports": {
            "get": {
                "tags": ["Reports"],
                "summary": "Report counts",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/reports/{type}": {
            "get": {
                "tags": ["Reports"],
                "summary": "Student report",
                "parameters": [
                    {"name": "type", "in": "path", "required": true, "type": "string", "enum": ["expiring", "expired", "pending_payment", "overdue_payment"]}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "400": {"description": "Unknown report", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/plan-types": {
            "get": {
                "tags": ["Lookups"],
                "summary": "List active plan types",
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}}
            },
            "post": {
                "tags": ["Lookups"],
                "summary": "Create plan type",
                "parameters": [{"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/LookupRequest"}}],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "409": {"description": "Name already used", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/plan-types/{id}": {
            "put": {
                "tags": ["Lookups"],
                "summary": "Update plan type",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"},
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/LookupRequest"}}
                ],
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}}
            },
            "delete": {
                "tags": ["Lookups"],
                "summary": "Deactivate plan type",
                "parameters": [{"name": "id", "in": "path", "required": true, "type": "string"}],
                "responses": {"204": {"description": "Deactivated"}}
            }
        },
        "/training-phases": {
            "get": {
                "tags": ["Lookups"],
                "summary": "List active training phases",
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}}
            },
            "post": {
                "tags": ["Lookups"],
                "summary": "Create training phase",
                "parameters": [{"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/LookupRequest"}}],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "409": {"description": "Name already used", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/training-phases/{id}": {
            "put": {
                "tags": ["Lookups"],
                "summary": "Update training phase",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"},
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/LookupRequest"}}
                ],
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}}
            },
            "delete": {
                "tags": ["Lookups"],
                "summary": "Deactivate training phase",
                "parameters": [{"name": "id", "in": "path", "required": true, "type": "string"}],
                "responses": {"204": {"description": "Deactivated"}}
            }
        },
        "/lookups/payment-methods": {
            "get": {
                "tags": ["Lookups"],
                "summary": "Suggested payment methods",
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}}
            }
        }
    },
    "definitions": {
        "StudentRequest": {
            "type": "object",
            "required": ["name", "planTypeId", "planStartDate", "planExpiryDate"],
            "properties": {
                "name": {"type": "string"},
                "email": {"type": "string"},
                "planTypeId": {"type": "string"},
                "planStartDate": {"type": "string", "format": "date"},
                "planExpiryDate": {"type": "string", "format": "date"},
                "trainingStartDate": {"type": "string", "format": "date"},
                "trainingExpiryDate": {"type": "string", "format": "date"},
                "trainingPhaseId": {"type": "string"},
                "trainingStatus": {"type": "string"},
                "paymentStatus": {"type": "string"},
                "paymentMethod": {"type": "string"},
                "paymentDate": {"type": "string", "format": "date"},
                "discount": {"type": "number"},
                "discountType": {"type": "string", "enum": ["valor", "percentual"]},
                "trainingAccessId": {"type": "string"},
                "observations": {"type": "string"}
            }
        },
        "ImportResult": {
            "type": "object",
            "properties": {
                "imported": {"type": "integer"},
                "errors": {"type": "array", "items": {"type": "string"}},
                "warnings": {"type": "array", "items": {"type": "string"}}
            }
        },
        "ExportJobRequest": {
            "type": "object",
            "properties": {
                "type": {"type": "string"},
                "format": {"type": "string"}
            }
        },
        "LookupRequest": {
            "type": "object",
            "required": ["name"],
            "properties": {
                "name": {"type": "string"},
                "color": {"type": "string"},
                "order": {"type": "integer"}
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
