package ws

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"
	"github.com/google/uuid"
)

// mirror middleware.LocalStationID and middleware.LocalStation; ws sits below the api package
const (
	localStationID = "station_id"
	localStation   = "station"
)

// Subscribe attaches a dashboard to the outcome feed of the authenticated station
func Subscribe(hub *Hub) fiber.Handler {
	return websocket.New(func(c *websocket.Conn) {
		stationID, ok := c.Locals(localStationID).(uuid.UUID)
		if !ok {
			_ = c.WriteMessage(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.ClosePolicyViolation, "station required"))
			_ = c.Close()
			return
		}

		client := &Client{
			hub:       hub,
			conn:      c,
			stationID: stationID,
			send:      make(chan []byte, 64),
		}
		hub.register <- client

		go client.writePump()
		client.readPump()
	})
}

// RequireUpgrade rejects plain HTTP requests on websocket routes
func RequireUpgrade() fiber.Handler {
	return func(c *fiber.Ctx) error {
		if !websocket.IsWebSocketUpgrade(c) {
			return fiber.ErrUpgradeRequired
		}
		return c.Next()
	}
}
