// Package docs registers the OpenAPI description served at /swagger/doc.json.
// Keep it in step with the handler annotations when routes change.
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
        "/auth/register": {
            "post": {
                "tags": [
                    "auth"
                ],
                "summary": "Create an account",
                "produces": [
                    "application/json"
                ],
                "consumes": [
                    "application/json"
                ],
                "parameters": [
                    {
                        "description": "payload",
                        "name": "body",
                        "in": "body",
                        "required": true,
                        "schema": {
                            "$ref": "#/definitions/http.registerRequest"
                        }
                    }
                ],
                "responses": {
                    "201": {
                        "description": "Created",
                        "schema": {
                            "$ref": "#/definitions/http.userResponse"
                        }
                    },
                    "400": {
                        "description": "error",
                        "schema": {
                            "$ref": "#/definitions/http.errorResponse"
                        }
                    },
                    "409": {
                        "description": "error",
                        "schema": {
                            "$ref": "#/definitions/http.errorResponse"
                        }
                    }
                }
            }
        },
        "/auth/login": {
            "post": {
                "tags": [
                    "auth"
                ],
                "summary": "Exchange credentials for a bearer token",
                "produces": [
                    "application/json"
                ],
                "consumes": [
                    "application/json"
                ],
                "parameters": [
                    {
                        "description": "payload",
                        "name": "body",
                        "in": "body",
                        "required": true,
                        "schema": {
                            "$ref": "#/definitions/http.loginRequest"
                        }
                    }
                ],
                "responses": {
                    "200": {
                        "description": "OK",
                        "schema": {
                            "$ref": "#/definitions/http.loginResponse"
                        }
                    },
                    "400": {
                        "description": "error",
                        "schema": {
                            "$ref": "#/definitions/http.errorResponse"
                        }
                    },
                    "401": {
                        "description": "error",
                        "schema": {
                            "$ref": "#/definitions/http.errorResponse"
                        }
                    }
                }
            }
        },
        "/sessions": {
            "post": {
                "tags": [
                    "sessions"
                ],
                "summary": "Record a finished session",
                "produces": [
                    "application/json"
                ],
                "consumes": [
                    "application/json"
                ],
                "security": [
                    {
                        "BearerAuth": []
                    }
                ],
                "parameters": [
                    {
                        "description": "payload",
                        "name": "body",
                        "in": "body",
                        "required": true,
                        "schema": {
                            "$ref": "#/definitions/http.recordSessionRequest"
                        }
                    }
                ],
                "responses": {
                    "201": {
                        "description": "Created",
                        "schema": {
                            "$ref": "#/definitions/http.recordSessionResponse"
                        }
                    },
                    "400": {
                        "description": "error",
                        "schema": {
                            "$ref": "#/definitions/http.errorResponse"
                        }
                    }
                }
            },
            "get": {
                "tags": [
                    "sessions"
                ],
                "summary": "Session history, oldest first",
                "produces": [
                    "application/json"
                ],
                "security": [
                    {
                        "BearerAuth": []
                    }
                ],
                "parameters": [
                    {
                        "type": "integer",
                        "description": "window in days (default 30, max 365)",
                        "name": "days",
                        "in": "query"
                    }
                ],
                "responses": {
                    "200": {
                        "description": "OK",
                        "schema": {
                            "type": "array",
                            "items": {
                                "$ref": "#/definitions/domain.SessionRecord"
                            }
                        }
                    }
                }
            }
        },
        "/stats/summary": {
            "get": {
                "tags": [
                    "stats"
                ],
                "summary": "Streaks, favorite activity, totals and counters",
                "produces": [
                    "application/json"
                ],
                "security": [
                    {
                        "BearerAuth": []
                    }
                ],
                "responses": {
                    "200": {
                        "description": "OK",
                        "schema": {
                            "$ref": "#/definitions/domain.StatsSummary"
                        }
                    }
                }
            }
        },
        "/stats/engagement": {
            "get": {
                "tags": [
                    "stats"
                ],
                "summary": "Days since the last activity and a nudge message",
                "produces": [
                    "application/json"
                ],
                "security": [
                    {
                        "BearerAuth": []
                    }
                ],
                "responses": {
                    "200": {
                        "description": "OK",
                        "schema": {
                            "$ref": "#/definitions/domain.Engagement"
                        }
                    }
                }
            }
        },
        "/timer": {
            "get": {
                "tags": [
                    "timer"
                ],
                "summary": "Current state of both timers",
                "produces": [
                    "application/json"
                ],
                "security": [
                    {
                        "BearerAuth": []
                    }
                ],
                "responses": {
                    "200": {
                        "description": "OK"
                    }
                }
            }
        },
        "/timer/events": {
            "get": {
                "tags": [
                    "timer"
                ],
                "summary": "Server-sent stream of timer events and sound cues",
                "produces": [
                    "text/event-stream"
                ],
                "security": [
                    {
                        "BearerAuth": []
                    }
                ],
                "responses": {
                    "200": {
                        "description": "OK"
                    }
                }
            }
        },
        "/sleep/authorize": {
            "post": {
                "tags": [
                    "sleep"
                ],
                "summary": "Grant or revoke access to sleep data",
                "produces": [
                    "application/json"
                ],
                "consumes": [
                    "application/json"
                ],
                "security": [
                    {
                        "BearerAuth": []
                    }
                ],
                "parameters": [
                    {
                        "description": "payload",
                        "name": "body",
                        "in": "body",
                        "required": true,
                        "schema": {
                            "$ref": "#/definitions/http.authorizeSleepRequest"
                        }
                    }
                ],
                "responses": {
                    "200": {
                        "description": "OK"
                    },
                    "400": {
                        "description": "error",
                        "schema": {
                            "$ref": "#/definitions/http.errorResponse"
                        }
                    },
                    "403": {
                        "description": "error",
                        "schema": {
                            "$ref": "#/definitions/http.errorResponse"
                        }
                    },
                    "502": {
                        "description": "error",
                        "schema": {
                            "$ref": "#/definitions/http.errorResponse"
                        }
                    }
                }
            }
        },
        "/sleep/samples": {
            "post": {
                "tags": [
                    "sleep"
                ],
                "summary": "Upload stage intervals recorded by a device",
                "produces": [
                    "application/json"
                ],
                "consumes": [
                    "application/json"
                ],
                "security": [
                    {
                        "BearerAuth": []
                    }
                ],
                "parameters": [
                    {
                        "description": "payload",
                        "name": "body",
                        "in": "body",
                        "required": true,
                        "schema": {
                            "$ref": "#/definitions/http.uploadSleepRequest"
                        }
                    }
                ],
                "responses": {
                    "201": {
                        "description": "Created"
                    },
                    "400": {
                        "description": "error",
                        "schema": {
                            "$ref": "#/definitions/http.errorResponse"
                        }
                    },
                    "403": {
                        "description": "error",
                        "schema": {
                            "$ref": "#/definitions/http.errorResponse"
                        }
                    },
                    "502": {
                        "description": "error",
                        "schema": {
                            "$ref": "#/definitions/http.errorResponse"
                        }
                    }
                }
            }
        },
        "/sleep/summaries": {
            "get": {
                "tags": [
                    "sleep"
                ],
                "summary": "Per-night sleep summaries for the last days",
                "produces": [
                    "application/json"
                ],
                "security": [
                    {
                        "BearerAuth": []
                    }
                ],
                "parameters": [
                    {
                        "type": "integer",
                        "description": "window in days (default 7, max 90)",
                        "name": "days",
                        "in": "query"
                    }
                ],
                "responses": {
                    "200": {
                        "description": "OK",
                        "schema": {
                            "type": "array",
                            "items": {
                                "$ref": "#/definitions/domain.SleepDaySummary"
                            }
                        }
                    },
                    "400": {
                        "description": "error",
                        "schema": {
                            "$ref": "#/definitions/http.errorResponse"
                        }
                    },
                    "403": {
                        "description": "error",
                        "schema": {
                            "$ref": "#/definitions/http.errorResponse"
                        }
                    },
                    "502": {
                        "description": "error",
                        "schema": {
                            "$ref": "#/definitions/http.errorResponse"
                        }
                    }
                }
            }
        },
        "/sleep/events": {
            "get": {
                "tags": [
                    "sleep"
                ],
                "summary": "Server-sent stream of refreshed summaries after each upload",
                "produces": [
                    "text/event-stream"
                ],
                "security": [
                    {
                        "BearerAuth": []
                    }
                ],
                "responses": {
                    "200": {
                        "description": "OK"
                    }
                }
            }
        },
        "/audio/tones/{cue}": {
            "get": {
                "tags": [
                    "audio"
                ],
                "summary": "Transition tone as a 16-bit mono WAV",
                "produces": [
                    "audio/wav"
                ],
                "parameters": [
                    {
                        "type": "string",
                        "description": "start, end, bell, gong, inhale, hold_in, exhale or hold_out",
                        "name": "cue",
                        "in": "path",
                        "required": true
                    }
                ],
                "responses": {
                    "200": {
                        "description": "OK",
                        "schema": {
                            "type": "file"
                        }
                    },
                    "404": {
                        "description": "error",
                        "schema": {
                            "$ref": "#/definitions/http.errorResponse"
                        }
                    }
                }
            }
        },
        "/audio/noise/{color}": {
            "get": {
                "tags": [
                    "audio"
                ],
                "summary": "Colored noise streamed as WAV",
                "produces": [
                    "audio/wav"
                ],
                "parameters": [
                    {
                        "type": "string",
                        "description": "white, pink, brown, blue or green",
                        "name": "color",
                        "in": "path",
                        "required": true
                    },
                    {
                        "type": "integer",
                        "description": "length (default 30, max 600)",
                        "name": "seconds",
                        "in": "query"
                    }
                ],
                "responses": {
                    "200": {
                        "description": "OK",
                        "schema": {
                            "type": "file"
                        }
                    },
                    "400": {
                        "description": "error",
                        "schema": {
                            "$ref": "#/definitions/http.errorResponse"
                        }
                    },
                    "404": {
                        "description": "error",
                        "schema": {
                            "$ref": "#/definitions/http.errorResponse"
                        }
                    }
                }
            }
        },
        "/audio/ambient/{kind}": {
            "get": {
                "tags": [
                    "audio"
                ],
                "summary": "Synthesized ambient fallback as WAV",
                "produces": [
                    "audio/wav"
                ],
                "parameters": [
                    {
                        "type": "string",
                        "description": "rain, ocean, wind, forest, fire or stream",
                        "name": "kind",
                        "in": "path",
                        "required": true
                    },
                    {
                        "type": "integer",
                        "description": "length (default 30, max 600)",
                        "name": "seconds",
                        "in": "query"
                    }
                ],
                "responses": {
                    "200": {
                        "description": "OK",
                        "schema": {
                            "type": "file"
                        }
                    },
                    "400": {
                        "description": "error",
                        "schema": {
                            "$ref": "#/definitions/http.errorResponse"
                        }
                    },
                    "404": {
                        "description": "error",
                        "schema": {
                            "$ref": "#/definitions/http.errorResponse"
                        }
                    }
                }
            }
        },
        "/timer/focus/start": {
            "post": {
                "tags": [
                    "timer"
                ],
                "summary": "Start the focus timer",
                "produces": [
                    "application/json"
                ],
                "security": [
                    {
                        "BearerAuth": []
                    }
                ],
                "responses": {
                    "200": {
                        "description": "OK"
                    },
                    "409": {
                        "description": "error",
                        "schema": {
                            "$ref": "#/definitions/http.errorResponse"
                        }
                    }
                }
            }
        },
        "/timer/focus/pause": {
            "post": {
                "tags": [
                    "timer"
                ],
                "summary": "Pause the focus timer",
                "produces": [
                    "application/json"
                ],
                "security": [
                    {
                        "BearerAuth": []
                    }
                ],
                "responses": {
                    "200": {
                        "description": "OK"
                    },
                    "409": {
                        "description": "error",
                        "schema": {
                            "$ref": "#/definitions/http.errorResponse"
                        }
                    }
                }
            }
        },
        "/timer/focus/resume": {
            "post": {
                "tags": [
                    "timer"
                ],
                "summary": "Resume the focus timer",
                "produces": [
                    "application/json"
                ],
                "security": [
                    {
                        "BearerAuth": []
                    }
                ],
                "responses": {
                    "200": {
                        "description": "OK"
                    },
                    "409": {
                        "description": "error",
                        "schema": {
                            "$ref": "#/definitions/http.errorResponse"
                        }
                    }
                }
            }
        },
        "/timer/focus/reset": {
            "post": {
                "tags": [
                    "timer"
                ],
                "summary": "Reset the focus timer",
                "produces": [
                    "application/json"
                ],
                "security": [
                    {
                        "BearerAuth": []
                    }
                ],
                "responses": {
                    "200": {
                        "description": "OK"
                    },
                    "409": {
                        "description": "error",
                        "schema": {
                            "$ref": "#/definitions/http.errorResponse"
                        }
                    }
                }
            }
        },
        "/timer/focus/mode": {
            "post": {
                "tags": [
                    "timer"
                ],
                "summary": "Switch the focus timer to another mode",
                "produces": [
                    "application/json"
                ],
                "consumes": [
                    "application/json"
                ],
                "security": [
                    {
                        "BearerAuth": []
                    }
                ],
                "parameters": [
                    {
                        "description": "payload",
                        "name": "body",
                        "in": "body",
                        "required": true,
                        "schema": {
                            "$ref": "#/definitions/http.selectModeRequest"
                        }
                    }
                ],
                "responses": {
                    "200": {
                        "description": "OK"
                    },
                    "400": {
                        "description": "error",
                        "schema": {
                            "$ref": "#/definitions/http.errorResponse"
                        }
                    },
                    "409": {
                        "description": "error",
                        "schema": {
                            "$ref": "#/definitions/http.errorResponse"
                        }
                    }
                }
            }
        },
        "/timer/focus/auto-cycle": {
            "post": {
                "tags": [
                    "timer"
                ],
                "summary": "Toggle automatic progression through the Pomodoro cycle",
                "produces": [
                    "application/json"
                ],
                "consumes": [
                    "application/json"
                ],
                "security": [
                    {
                        "BearerAuth": []
                    }
                ],
                "parameters": [
                    {
                        "description": "payload",
                        "name": "body",
                        "in": "body",
                        "required": true,
                        "schema": {
                            "$ref": "#/definitions/http.autoCycleRequest"
                        }
                    }
                ],
                "responses": {
                    "200": {
                        "description": "OK"
                    },
                    "400": {
                        "description": "error",
                        "schema": {
                            "$ref": "#/definitions/http.errorResponse"
                        }
                    },
                    "409": {
                        "description": "error",
                        "schema": {
                            "$ref": "#/definitions/http.errorResponse"
                        }
                    }
                }
            }
        },
        "/timer/breathing/start": {
            "post": {
                "tags": [
                    "timer"
                ],
                "summary": "Start the breathing timer",
                "produces": [
                    "application/json"
                ],
                "security": [
                    {
                        "BearerAuth": []
                    }
                ],
                "responses": {
                    "200": {
                        "description": "OK"
                    },
                    "409": {
                        "description": "error",
                        "schema": {
                            "$ref": "#/definitions/http.errorResponse"
                        }
                    }
                }
            }
        },
        "/timer/breathing/pause": {
            "post": {
                "tags": [
                    "timer"
                ],
                "summary": "Pause the breathing timer",
                "produces": [
                    "application/json"
                ],
                "security": [
                    {
                        "BearerAuth": []
                    }
                ],
                "responses": {
                    "200": {
                        "description": "OK"
                    },
                    "409": {
                        "description": "error",
                        "schema": {
                            "$ref": "#/definitions/http.errorResponse"
                        }
                    }
                }
            }
        },
        "/timer/breathing/resume": {
            "post": {
                "tags": [
                    "timer"
                ],
                "summary": "Resume the breathing timer",
                "produces": [
                    "application/json"
                ],
                "security": [
                    {
                        "BearerAuth": []
                    }
                ],
                "responses": {
                    "200": {
                        "description": "OK"
                    },
                    "409": {
                        "description": "error",
                        "schema": {
                            "$ref": "#/definitions/http.errorResponse"
                        }
                    }
                }
            }
        },
        "/timer/breathing/stop": {
            "post": {
                "tags": [
                    "timer"
                ],
                "summary": "Stop the breathing timer",
                "produces": [
                    "application/json"
                ],
                "security": [
                    {
                        "BearerAuth": []
                    }
                ],
                "responses": {
                    "200": {
                        "description": "OK"
                    },
                    "409": {
                        "description": "error",
                        "schema": {
                            "$ref": "#/definitions/http.errorResponse"
                        }
                    }
                }
            }
        }
    },
    "definitions": {
        "http.errorResponse": {
            "type": "object",
            "properties": {
                "error": {
                    "type": "string"
                }
            }
        },
        "http.registerRequest": {
            "type": "object",
            "properties": {
                "email": {
                    "type": "string"
                },
                "password": {
                    "type": "string",
                    "minLength": 8
                },
                "timezone": {
                    "type": "string"
                }
            },
            "required": [
                "email",
                "password"
            ]
        },
        "http.loginRequest": {
            "type": "object",
            "properties": {
                "email": {
                    "type": "string"
                },
                "password": {
                    "type": "string"
                }
            },
            "required": [
                "email",
                "password"
            ]
        },
        "http.userResponse": {
            "type": "object",
            "properties": {
                "id": {
                    "type": "string"
                },
                "email": {
                    "type": "string"
                },
                "timezone": {
                    "type": "string"
                }
            }
        },
        "http.loginResponse": {
            "type": "object",
            "properties": {
                "token": {
                    "type": "string"
                },
                "user": {
                    "$ref": "#/definitions/http.userResponse"
                }
            }
        },
        "http.recordSessionRequest": {
            "type": "object",
            "properties": {
                "activity": {
                    "type": "string"
                },
                "duration_seconds": {
                    "type": "integer"
                },
                "break_kind": {
                    "type": "string"
                }
            },
            "required": [
                "activity"
            ]
        },
        "http.recordSessionResponse": {
            "type": "object",
            "properties": {
                "activity": {
                    "type": "string"
                },
                "duration_seconds": {
                    "type": "integer"
                },
                "completed": {
                    "type": "boolean"
                }
            }
        },
        "http.selectModeRequest": {
            "type": "object",
            "properties": {
                "mode": {
                    "type": "string"
                }
            },
            "required": [
                "mode"
            ]
        },
        "http.autoCycleRequest": {
            "type": "object",
            "properties": {
                "enabled": {
                    "type": "boolean"
                }
            },
            "required": [
                "enabled"
            ]
        },
        "http.authorizeSleepRequest": {
            "type": "object",
            "properties": {
                "granted": {
                    "type": "boolean"
                }
            },
            "required": [
                "granted"
            ]
        },
        "http.sleepSampleRequest": {
            "type": "object",
            "properties": {
                "id": {
                    "type": "string"
                },
                "start_time": {
                    "type": "string"
                },
                "end_time": {
                    "type": "string"
                },
                "stage_code": {
                    "type": "integer"
                }
            },
            "required": [
                "start_time",
                "end_time"
            ]
        },
        "http.uploadSleepRequest": {
            "type": "object",
            "properties": {
                "samples": {
                    "type": "array",
                    "items": {
                        "$ref": "#/definitions/http.sleepSampleRequest"
                    }
                }
            },
            "required": [
                "samples"
            ]
        },
        "domain.SessionRecord": {
            "type": "object",
            "properties": {
                "id": {
                    "type": "string"
                },
                "user_id": {
                    "type": "string"
                },
                "timestamp": {
                    "type": "string"
                },
                "activity": {
                    "type": "string"
                },
                "duration_seconds": {
                    "type": "integer"
                }
            }
        },
        "domain.StatsSummary": {
            "type": "object",
            "properties": {
                "current_streak": {
                    "type": "integer"
                },
                "longest_streak": {
                    "type": "integer"
                },
                "favorite_activity": {
                    "type": "string"
                },
                "total_active_days": {
                    "type": "integer"
                },
                "sessions_this_week": {
                    "type": "integer"
                },
                "total_sessions": {
                    "type": "integer"
                },
                "average_session_duration_seconds": {
                    "type": "number"
                },
                "focus": {
                    "type": "object"
                },
                "breathe": {
                    "type": "object"
                },
                "sleep": {
                    "type": "object"
                },
                "last_activity": {
                    "type": "string"
                }
            }
        },
        "domain.Engagement": {
            "type": "object",
            "properties": {
                "last_activity": {
                    "type": "string"
                },
                "days_inactive": {
                    "type": "integer"
                },
                "current_streak": {
                    "type": "integer"
                },
                "message": {
                    "type": "string"
                }
            }
        },
        "domain.SleepDaySummary": {
            "type": "object",
            "properties": {
                "day": {
                    "type": "string"
                },
                "total_seconds": {
                    "type": "number"
                },
                "stage_seconds": {
                    "type": "object",
                    "additionalProperties": {
                        "type": "number"
                    }
                }
            }
        }
    },
    "securityDefinitions": {
        "BearerAuth": {
            "type": "apiKey",
            "name": "Authorization",
            "in": "header"
        }
    }
}`

// SwaggerInfo holds exported Swagger Info so clients can modify it
var SwaggerInfo = &swag.Spec{
	Version:          "1.0",
	Host:             "localhost:8080",
	BasePath:         "/api/v1",
	Schemes:          []string{},
	Title:            "Kanso Wellness Engine API",
	Description:      "Breathing and focus timers, session statistics, sleep summaries and synthesized audio.",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
	LeftDelim:        "{{",
	RightDelim:       "}}",
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}
