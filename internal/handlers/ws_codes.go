// internal/handlers/ws_codes.go
package handlers

import "github.com/coder/websocket"

// Custom WebSocket close codes used by the table socket.
const (
	BadSubprotocolError   websocket.StatusCode = 3000 // client did not ask for the "falseshow" subprotocol
	InvalidAuthTokenError websocket.StatusCode = 3001 // token missing, expired or forged
	InvalidTableIDError   websocket.StatusCode = 3003 // table closed before the seat was taken
	SeatUnavailableError  websocket.StatusCode = 3004 // table full or already started without this user
)
