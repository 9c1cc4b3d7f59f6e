package server

import (
	"encoding/json"
	"net/http"
	"slices"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	log "github.com/sirupsen/logrus"

	"github.com/Nigel-Baldwen/Ascension/internal/grid"
	"github.com/Nigel-Baldwen/Ascension/internal/unit"
	"github.com/Nigel-Baldwen/Ascension/internal/world"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

type MoveAction struct {
	Action string `json:"action"`
	Unit   string `json:"unit"`
	Row    int    `json:"row"`
	Col    int    `json:"col"`
}

type CancelAction struct {
	Action string `json:"action"`
	Unit   string `json:"unit"`
}

type InspectAction struct {
	Action string `json:"action"`
	Row    int    `json:"row"`
	Col    int    `json:"col"`
}

type SpeedAction struct {
	Action     string  `json:"action"`
	Multiplier float64 `json:"multiplier"`
}

type errorMessage struct {
	Type   string `json:"type"`
	Action string `json:"action"`
	Error  string `json:"error"`
}

type inspectResponse struct {
	Type       string `json:"type"`
	Row        int    `json:"row"`
	Col        int    `json:"col"`
	Descriptor string `json:"descriptor"`
}

// HandleWebsocket serves one player's live connection, chosen by the player query parameter.
func HandleWebsocket(broadcaster *world.Broadcaster, gameWorld *world.World) gin.HandlerFunc {
	return func(c *gin.Context) {
		n, err := strconv.Atoi(c.Query("player"))
		player := unit.PlayerID(n)
		if err != nil || !slices.Contains(gameWorld.Players(), player) {
			fail(c, http.StatusBadRequest, world.ErrUnknownPlayer)
			return
		}

		conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
		if err != nil {
			log.Println("WS upgrade error:", err)
			return
		}

		broadcaster.Register(conn, player)
		logger := log.WithField("player", player)

		for {
			msgType, msg, err := conn.ReadMessage()
			if err != nil {
				broadcaster.Unregister(conn)
				break
			}
			if msgType != websocket.TextMessage {
				continue
			}

			var base struct {
				Action string `json:"action"`
			}
			if err := json.Unmarshal(msg, &base); err != nil {
				logger.Println("JSON parse error:", err)
				continue
			}

			if err := handleAction(broadcaster, gameWorld, conn, player, base.Action, msg); err != nil {
				logger.Debugf("%s rejected: %v", base.Action, err)
				reply := errorMessage{Type: "error", Action: base.Action, Error: err.Error()}
				if err := broadcaster.Send(conn, reply); err != nil {
					logger.Println("Error send failed:", err)
				}
			}
		}
	}
}

func handleAction(broadcaster *world.Broadcaster, gameWorld *world.World, conn *websocket.Conn, player unit.PlayerID, action string, msg []byte) error {
	switch action {
	case "move":
		var move MoveAction
		if err := json.Unmarshal(msg, &move); err != nil {
			return err
		}
		id, err := uuid.Parse(move.Unit)
		if err != nil {
			return err
		}
		if err := gameWorld.RequestMove(player, id, grid.Cell{Row: move.Row, Col: move.Col}); err != nil {
			return err
		}
		broadcaster.BroadcastVisibility()

	case "cancel":
		var cancel CancelAction
		if err := json.Unmarshal(msg, &cancel); err != nil {
			return err
		}
		id, err := uuid.Parse(cancel.Unit)
		if err != nil {
			return err
		}
		if err := gameWorld.CancelOrders(player, id); err != nil {
			return err
		}
		broadcaster.BroadcastVisibility()

	case "end_round":
		n, err := gameWorld.EndRound(player)
		if err != nil {
			return err
		}
		broadcaster.Rotated(n)

	case "inspect":
		var inspect InspectAction
		if err := json.Unmarshal(msg, &inspect); err != nil {
			return err
		}
		d, err := gameWorld.Descriptor(player, grid.Cell{Row: inspect.Row, Col: inspect.Col})
		if err != nil {
			return err
		}
		return broadcaster.Send(conn, inspectResponse{Type: "inspect_response", Row: inspect.Row, Col: inspect.Col, Descriptor: d})

	case "set_speed":
		var speed SpeedAction
		if err := json.Unmarshal(msg, &speed); err != nil {
			return err
		}
		if speed.Multiplier > 0 {
			broadcaster.SetSpeed(speed.Multiplier)
		}

	case "toggle_pause":
		broadcaster.TogglePause()

	default:
		return errUnknownAction(action)
	}
	return nil
}

type errUnknownAction string

func (e errUnknownAction) Error() string {
	return "unknown action " + strconv.Quote(string(e))
}
