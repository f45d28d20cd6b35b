package swagger

import "github.com/swaggo/swag"

const docTemplate = `{
    "swagger": "2.0",
    "info": {
        "title": "Mentor Booking API",
        "description": "Weekly mentor availability, free slot queries and collision-free 1:1 session booking",
        "version": "1.0.0"
    },
    "basePath": "/api/v1",
    "schemes": [
        "http"
    ],
    "securityDefinitions": {
        "BearerAuth": {"type": "apiKey", "name": "Authorization", "in": "header"}
    },
    "security": [{"BearerAuth": []}],
    "tags": [
        {"name": "Availability", "description": "Mentor weekly templates and free slots"},
        {"name": "Sessions", "description": "Booking and the session lifecycle"}
    ],
    "paths": {
        "/availability": {
            "put": {
                "tags": ["Availability"],
                "summary": "Replace the caller's weekly availability",
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/UpdateAvailabilityRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "400": {"description": "Invalid duration or window", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "403": {"description": "Caller is not a mentor", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/availability/{mentorId}": {
            "get": {
                "tags": ["Availability"],
                "summary": "Get a mentor's weekly availability",
                "parameters": [
                    {"name": "mentorId", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "Template, or the default one", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/availability/{mentorId}/slots": {
            "get": {
                "tags": ["Availability"],
                "summary": "List a mentor's free slots on a date",
                "parameters": [
                    {"name": "mentorId", "in": "path", "required": true, "type": "string"},
                    {"name": "date", "in": "query", "required": true, "type": "string", "format": "date"}
                ],
                "responses": {
                    "200": {"description": "Free slots in template order", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "400": {"description": "Malformed date", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/availability/{mentorId}/slots/stream": {
            "get": {
                "tags": ["Availability"],
                "summary": "Websocket stream of booking events for a mentor",
                "parameters": [
                    {"name": "mentorId", "in": "path", "required": true, "type": "string"},
                    {"name": "access_token", "in": "query", "type": "string"}
                ],
                "responses": {
                    "101": {"description": "Switching protocols"},
                    "401": {"description": "Missing or invalid token"}
                }
            }
        },
        "/sessions": {
            "get": {
                "tags": ["Sessions"],
                "summary": "List the caller's sessions",
                "parameters": [
                    {"name": "status", "in": "query", "type": "string", "enum": ["booked", "completed"]},
                    {"name": "page", "in": "query", "type": "integer"},
                    {"name": "limit", "in": "query", "type": "integer"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/sessions/book": {
            "post": {
                "tags": ["Sessions"],
                "summary": "Book a slot of a 1:1 program",
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/BookSessionRequest"}}
                ],
                "responses": {
                    "201": {"description": "Booked", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "400": {"description": "Invalid slot or program format", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "404": {"description": "Program not found", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "409": {"description": "Slot taken or active session exists", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "429": {"description": "Too many booking attempts", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "503": {"description": "Storage unavailable, retry", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/sessions/export": {
            "get": {
                "tags": ["Sessions"],
                "summary": "Download the caller's session history",
                "produces": ["text/csv", "application/pdf"],
                "parameters": [
                    {"name": "format", "in": "query", "type": "string", "enum": ["csv", "pdf"]},
                    {"name": "status", "in": "query", "type": "string", "enum": ["booked", "completed"]}
                ],
                "responses": {
                    "200": {"description": "File", "schema": {"type": "file"}}
                }
            }
        },
        "/sessions/{id}": {
            "get": {
                "tags": ["Sessions"],
                "summary": "Get a session",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "403": {"description": "Not a participant", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "404": {"description": "Not found", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/sessions/{id}/complete": {
            "patch": {
                "tags": ["Sessions"],
                "summary": "Mark a booked session completed",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "400": {"description": "Session is not booked", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "403": {"description": "Not the session's mentor", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "404": {"description": "Not found", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/sessions/{id}/link": {
            "patch": {
                "tags": ["Sessions"],
                "summary": "Set or clear a session's meeting link",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"},
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/UpdateMeetingLinkRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "403": {"description": "Not the session's mentor", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "404": {"description": "Not found", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        }
    },
    "definitions": {
        "WeeklyWindow": {
            "type": "object",
            "required": ["dayOfWeek", "startTime", "endTime"],
            "properties": {
                "dayOfWeek": {"type": "integer", "minimum": 0, "maximum": 6, "description": "0 = Sunday"},
                "startTime": {"type": "string", "example": "09:00"},
                "endTime": {"type": "string", "example": "12:00"}
            }
        },
        "UpdateAvailabilityRequest": {
            "type": "object",
            "required": ["slotDurationMinutes"],
            "properties": {
                "slotDurationMinutes": {"type": "integer", "minimum": 10, "maximum": 60},
                "windows": {"type": "array", "items": {"$ref": "#/definitions/WeeklyWindow"}}
            }
        },
        "Slot": {
            "type": "object",
            "properties": {
                "startTime": {"type": "string", "example": "10:20"},
                "endTime": {"type": "string", "example": "10:40"}
            }
        },
        "BookSessionRequest": {
            "type": "object",
            "required": ["programId", "date", "startTime", "endTime"],
            "properties": {
                "programId": {"type": "string"},
                "date": {"type": "string", "format": "date", "example": "2026-03-02"},
                "startTime": {"type": "string", "example": "10:20"},
                "endTime": {"type": "string", "example": "10:40"}
            }
        },
        "UpdateMeetingLinkRequest": {
            "type": "object",
            "properties": {
                "meetingLink": {"type": "string", "maxLength": 2048}
            }
        },
        "Session": {
            "type": "object",
            "properties": {
                "id": {"type": "string"},
                "programId": {"type": "string"},
                "mentorId": {"type": "string"},
                "studentId": {"type": "string"},
                "date": {"type": "string", "format": "date-time"},
                "startTime": {"type": "string"},
                "endTime": {"type": "string"},
                "meetingLink": {"type": "string"},
                "status": {"type": "string", "enum": ["booked", "completed"]},
                "createdAt": {"type": "string", "format": "date-time"},
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
