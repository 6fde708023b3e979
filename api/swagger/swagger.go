package swagger

import "github.com/swaggo/swag"

const docTemplate = `{
    "swagger": "2.0",
    "info": {
        "title": "CEAMA Enrollment API",
        "description": "Public registration, tuition payments and staff payment review for CEAMA.",
        "version": "1.0.0"
    },
    "basePath": "/api/v1",
    "schemes": ["http", "https"],
    "securityDefinitions": {
        "BearerAuth": {"type": "apiKey", "name": "Authorization", "in": "header"}
    },
    "tags": [
        {"name": "Registration", "description": "Staged student and guardian data, held per session cookie"},
        {"name": "Payments", "description": "Payment submission with proof files"},
        {"name": "Tracking", "description": "Guardian follow-up by access code"},
        {"name": "Catalog", "description": "Plans and class group capacity"},
        {"name": "Authentication", "description": "Staff login"},
        {"name": "Review", "description": "Staff payment review queue"}
    ],
    "paths": {
        "/registrations/stage": {
            "post": {
                "tags": ["Registration"],
                "summary": "Stage student and plan selection",
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/StageRegistrationRequest"}}
                ],
                "responses": {
                    "200": {"description": "Staged", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "400": {"description": "Validation error", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/registrations/guardian": {
            "post": {
                "tags": ["Registration"],
                "summary": "Stage guardian data",
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/StageGuardianRequest"}}
                ],
                "responses": {
                    "200": {"description": "Staged", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "400": {"description": "Validation error", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "409": {"description": "Phone registered to another guardian", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "410": {"description": "Staged data expired", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/registrations/preview": {
            "get": {
                "tags": ["Registration"],
                "summary": "Review staged registration before paying",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "404": {"description": "Nothing staged", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "410": {"description": "Staged data expired", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/payments": {
            "post": {
                "tags": ["Payments"],
                "summary": "Submit a payment with proofs",
                "consumes": ["multipart/form-data"],
                "parameters": [
                    {"name": "inscripcion_id", "in": "formData", "type": "string"},
                    {"name": "amount", "in": "formData", "type": "number", "required": true},
                    {"name": "method", "in": "formData", "type": "string", "enum": ["TRANSFER", "YAPE", "PLIN"], "required": true},
                    {"name": "requested_status", "in": "formData", "type": "string", "enum": ["PARTIAL", "COMPLETED"]},
                    {"name": "files", "in": "formData", "type": "file", "required": true}
                ],
                "responses": {
                    "201": {"description": "Recorded", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "400": {"description": "Validation error", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "409": {"description": "Class group full or duplicate guardian", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "410": {"description": "Staged data expired", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/tracking/{code}": {
            "get": {
                "tags": ["Tracking"],
                "summary": "Show enrollment and payments for an access code",
                "parameters": [
                    {"name": "code", "in": "path", "type": "string", "required": true}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "404": {"description": "Unknown code", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/tracking/{code}/payments": {
            "post": {
                "tags": ["Tracking"],
                "summary": "Submit a follow-up payment",
                "consumes": ["multipart/form-data"],
                "parameters": [
                    {"name": "code", "in": "path", "type": "string", "required": true},
                    {"name": "amount", "in": "formData", "type": "number", "required": true},
                    {"name": "method", "in": "formData", "type": "string", "enum": ["TRANSFER", "YAPE", "PLIN"], "required": true},
                    {"name": "files", "in": "formData", "type": "file", "required": true}
                ],
                "responses": {
                    "201": {"description": "Recorded", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "400": {"description": "Validation error", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "412": {"description": "A payment is already pending or the enrollment is settled", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/tracking/{code}/receipt": {
            "get": {
                "tags": ["Tracking"],
                "summary": "Download the payment receipt",
                "produces": ["application/pdf"],
                "parameters": [
                    {"name": "code", "in": "path", "type": "string", "required": true}
                ],
                "responses": {
                    "200": {"description": "PDF receipt", "schema": {"type": "file"}},
                    "404": {"description": "Unknown code", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "412": {"description": "No approved payment yet", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/tracking/resend-code": {
            "post": {
                "tags": ["Tracking"],
                "summary": "Email the access code again",
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/ResendCodeRequest"}}
                ],
                "responses": {
                    "202": {"description": "Queued", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "404": {"description": "No enrollment for this email", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/assignments": {
            "get": {
                "tags": ["Catalog"],
                "summary": "List class groups with seat availability",
                "parameters": [
                    {"name": "grade", "in": "query", "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/assignments/{id}": {
            "get": {
                "tags": ["Catalog"],
                "summary": "Class group detail",
                "parameters": [
                    {"name": "id", "in": "path", "type": "string", "required": true}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "404": {"description": "Not found", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/plans": {
            "get": {
                "tags": ["Catalog"],
                "summary": "Active plans with courses",
                "parameters": [
                    {"name": "level", "in": "query", "type": "string", "enum": ["PRIMARIA", "SECUNDARIA"]}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/auth/login": {
            "post": {
                "tags": ["Authentication"],
                "summary": "Authenticate staff user",
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/LoginRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "401": {"description": "Invalid credentials", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/auth/me": {
            "get": {
                "tags": ["Authentication"],
                "summary": "Current staff user",
                "security": [{"BearerAuth": []}],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "401": {"description": "Unauthorized", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "403": {"description": "Account inactive", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/admin/payments": {
            "get": {
                "tags": ["Review"],
                "summary": "List submitted payments",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "status", "in": "query", "type": "string", "enum": ["PENDING", "PARTIAL", "COMPLETED", "REJECTED"]},
                    {"name": "method", "in": "query", "type": "string", "enum": ["TRANSFER", "YAPE", "PLIN"]},
                    {"name": "search", "in": "query", "type": "string"},
                    {"name": "page", "in": "query", "type": "integer"},
                    {"name": "limit", "in": "query", "type": "integer"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/admin/payments/{id}/approve": {
            "post": {
                "tags": ["Review"],
                "summary": "Approve a payment",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "id", "in": "path", "type": "string", "required": true},
                    {"name": "payload", "in": "body", "schema": {"$ref": "#/definitions/ApprovePaymentRequest"}}
                ],
                "responses": {
                    "200": {"description": "Approved", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "404": {"description": "Not found", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "412": {"description": "Payment already reviewed", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/admin/payments/{id}/reject": {
            "post": {
                "tags": ["Review"],
                "summary": "Reject a payment",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "id", "in": "path", "type": "string", "required": true}
                ],
                "responses": {
                    "200": {"description": "Rejected", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "404": {"description": "Not found", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "412": {"description": "Payment already reviewed", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/admin/payments/{id}/history": {
            "get": {
                "tags": ["Review"],
                "summary": "Audit trail of a payment",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "id", "in": "path", "type": "string", "required": true}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "404": {"description": "Payment not found", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/admin/payments/{id}/proofs": {
            "get": {
                "tags": ["Review"],
                "summary": "Signed download links for payment proofs",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "id", "in": "path", "type": "string", "required": true}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/admin/proofs/download": {
            "get": {
                "tags": ["Review"],
                "summary": "Stream a payment proof",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "token", "in": "query", "type": "string", "required": true}
                ],
                "responses": {
                    "200": {"description": "Proof file", "schema": {"type": "file"}},
                    "403": {"description": "Invalid or expired token", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/admin/catalog/cache": {
            "delete": {
                "tags": ["Catalog"],
                "summary": "Drop cached plan listings",
                "security": [{"BearerAuth": []}],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/admin/collections": {
            "get": {
                "tags": ["Dashboard"],
                "summary": "Collected and pending payment totals by grade and class group",
                "security": [{"BearerAuth": []}],
                "produces": ["application/json"],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/admin/registrations/export": {
            "get": {
                "tags": ["Export"],
                "summary": "Export registrations as CSV or PDF",
                "security": [{"BearerAuth": []}],
                "produces": ["text/csv", "application/pdf"],
                "parameters": [
                    {"type": "string", "enum": ["csv", "pdf"], "name": "format", "in": "query"},
                    {"type": "string", "enum": ["ACTIVE", "INACTIVE"], "name": "status", "in": "query"},
                    {"type": "string", "name": "assignmentId", "in": "query"},
                    {"type": "string", "name": "q", "in": "query"}
                ],
                "responses": {
                    "200": {"description": "File", "schema": {"type": "file"}},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        }
    },
    "definitions": {
        "StageRegistrationRequest": {
            "type": "object",
            "required": ["first_name", "last_name", "age", "grade"],
            "properties": {
                "first_name": {"type": "string", "maxLength": 30},
                "last_name": {"type": "string", "maxLength": 30},
                "age": {"type": "integer", "minimum": 5, "maximum": 20},
                "grade": {"type": "string"},
                "school": {"type": "string", "maxLength": 30},
                "plan_id": {"type": "string", "format": "uuid"},
                "assignment_id": {"type": "string", "format": "uuid"}
            }
        },
        "StageGuardianRequest": {
            "type": "object",
            "required": ["dni", "first_name", "last_name", "phone"],
            "properties": {
                "dni": {"type": "string", "minLength": 8, "maxLength": 8},
                "first_name": {"type": "string", "maxLength": 30},
                "last_name": {"type": "string", "maxLength": 30},
                "phone": {"type": "string", "minLength": 9, "maxLength": 9},
                "email": {"type": "string", "format": "email"},
                "address": {"type": "string", "maxLength": 50}
            }
        },
        "ResendCodeRequest": {
            "type": "object",
            "required": ["email"],
            "properties": {
                "email": {"type": "string", "format": "email"}
            }
        },
        "ApprovePaymentRequest": {
            "type": "object",
            "properties": {
                "status": {"type": "string", "enum": ["PARTIAL", "COMPLETED"]}
            }
        },
        "LoginRequest": {
            "type": "object",
            "required": ["email", "password"],
            "properties": {
                "email": {"type": "string", "format": "email"},
                "password": {"type": "string"}
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
                "fields": {"type": "object", "additionalProperties": {"type": "string"}}
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
