package swagger

import "github.com/swaggo/swag"

const docTemplate = `{
    "swagger": "2.0",
    "info": {
        "title": "RepairJunction API",
        "description": "Technician auto-assignment, request matching and capacity tracking.",
        "version": "1.0.0"
    },
    "basePath": "/api/v1",
    "schemes": ["http", "https"],
    "securityDefinitions": {
        "BearerAuth": {"type": "apiKey", "name": "Authorization", "in": "header"}
    },
    "security": [{"BearerAuth": []}],
    "tags": [
        {"name": "Requests", "description": "Customer repair requests and tracking"},
        {"name": "Technicians", "description": "Technician feed, claims and batch sweep"},
        {"name": "Pincodes", "description": "Pincode extraction diagnostics"}
    ],
    "paths": {
        "/requests": {
            "post": {
                "tags": ["Requests"],
                "summary": "Create a repair request and try to assign a nearby technician",
                "parameters": [
                    {"in": "body", "name": "payload", "required": true, "schema": {"$ref": "#/definitions/CreateRepairRequest"}}
                ],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "400": {"description": "Validation error", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "403": {"description": "Saved address belongs to another user", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/requests/mine": {
            "get": {
                "tags": ["Requests"],
                "summary": "List the caller's repair requests",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/requests/{id}": {
            "get": {
                "tags": ["Requests"],
                "summary": "Get a repair request",
                "parameters": [
                    {"in": "path", "name": "id", "type": "integer", "required": true}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "403": {"description": "Not visible to caller", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "404": {"description": "Not found", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/requests/{id}/auto-assign": {
            "post": {
                "tags": ["Requests"],
                "summary": "Re-run automatic assignment (admin)",
                "parameters": [
                    {"in": "path", "name": "id", "type": "integer", "required": true},
                    {"in": "query", "name": "pincode", "type": "string"},
                    {"in": "query", "name": "city", "type": "string"},
                    {"in": "query", "name": "state", "type": "string"}
                ],
                "responses": {
                    "200": {"description": "Assignment result", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "409": {"description": "Already assigned", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/requests/{id}/tracking": {
            "patch": {
                "tags": ["Requests"],
                "summary": "Advance repair tracking by one step",
                "parameters": [
                    {"in": "path", "name": "id", "type": "integer", "required": true},
                    {"in": "body", "name": "payload", "required": true, "schema": {"$ref": "#/definitions/UpdateTrackingRequest"}}
                ],
                "responses": {
                    "200": {"description": "Updated", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "409": {"description": "Invalid transition", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/requests/{id}/quotation/accept": {
            "post": {
                "tags": ["Requests"],
                "summary": "Accept the shared quotation and start the repair",
                "parameters": [
                    {"in": "path", "name": "id", "type": "integer", "required": true}
                ],
                "responses": {
                    "200": {"description": "Repair in progress", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "403": {"description": "Request belongs to another user", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "409": {"description": "No quotation awaiting a decision", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/requests/{id}/quotation/reject": {
            "post": {
                "tags": ["Requests"],
                "summary": "Reject the shared quotation, closing the request and releasing the technician",
                "parameters": [
                    {"in": "path", "name": "id", "type": "integer", "required": true}
                ],
                "responses": {
                    "200": {"description": "Request closed", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "403": {"description": "Request belongs to another user", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "409": {"description": "No quotation awaiting a decision", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/technicians/me/feed": {
            "get": {
                "tags": ["Technicians"],
                "summary": "Pending requests near the technician plus recent assignments",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/technicians/me/requests/{id}/claim": {
            "post": {
                "tags": ["Technicians"],
                "summary": "Claim a pending request",
                "parameters": [
                    {"in": "path", "name": "id", "type": "integer", "required": true}
                ],
                "responses": {
                    "200": {"description": "Claimed", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "409": {"description": "At capacity or already assigned", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/technicians/me/requests/{id}/complete": {
            "post": {
                "tags": ["Technicians"],
                "summary": "Complete a held request and free capacity",
                "parameters": [
                    {"in": "path", "name": "id", "type": "integer", "required": true}
                ],
                "responses": {
                    "200": {"description": "Completed", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "403": {"description": "Not held by caller", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/technicians/{id}/sweep": {
            "post": {
                "tags": ["Technicians"],
                "summary": "Claim nearby unassigned requests while capacity lasts",
                "parameters": [
                    {"in": "path", "name": "id", "type": "string", "required": true}
                ],
                "responses": {
                    "200": {"description": "Sweep result", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/pincodes/extract": {
            "get": {
                "tags": ["Pincodes"],
                "summary": "Extract a pincode from a free-text address",
                "parameters": [
                    {"in": "query", "name": "address", "type": "string", "required": true}
                ],
                "responses": {
                    "200": {"description": "Extraction result", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "400": {"description": "Missing address", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        }
    },
    "definitions": {
        "CreateRepairRequest": {
            "type": "object",
            "required": ["customer_name", "appliance_type"],
            "properties": {
                "customer_name": {"type": "string"},
                "appliance_type": {"type": "string"},
                "model_name": {"type": "string"},
                "serial_number": {"type": "string"},
                "service_type": {"type": "string"},
                "description": {"type": "string"},
                "address": {"type": "string"},
                "address_id": {"type": "string", "format": "uuid"},
                "pincode": {"type": "string"},
                "city": {"type": "string"},
                "state": {"type": "string"},
                "scheduled_pickup_datetime": {"type": "string", "format": "date-time"}
            }
        },
        "UpdateTrackingRequest": {
            "type": "object",
            "required": ["repair_status"],
            "properties": {
                "repair_status": {
                    "type": "string",
                    "enum": ["request_accepted", "pickup_scheduled", "diagnosis_inspection", "quotation_shared", "quotation_accepted", "repair_in_progress", "quality_check", "ready_for_delivery", "delivered"]
                },
                "scheduled_pickup_datetime": {"type": "string", "format": "date-time"}
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
