package server

import (
	"encoding/json"

	"github.com/gorilla/websocket"
	log "github.com/sirupsen/logrus"

	"flownet/model"
)

// 消息类型
const (
	msgStart      = "start"
	msgStop       = "stop"
	msgReset      = "reset"
	msgQuantities = "quantities"
	msgStatus     = "status"

	msgStarted = "started"
	msgStopped = "stopped"
	msgResult  = "result"
	msgError   = "error"
)

// Hub 处理一个 websocket 连接：读请求、推送结果
type Hub struct {
	sim  *simulation
	conn *websocket.Conn
	// request
	msg chan model.Msg
	// response
	reply   chan model.Msg
	results <-chan model.Snapshot
	cancel  func()
	done    chan struct{}
}

func newHub(sim *simulation, conn *websocket.Conn) *Hub {
	results, cancel := sim.runner.Subscribe()
	return &Hub{
		sim:     sim,
		conn:    conn,
		msg:     make(chan model.Msg, 10),
		reply:   make(chan model.Msg, 10),
		results: results,
		cancel:  cancel,
		done:    make(chan struct{}),
	}
}

func (h *Hub) close() {
	close(h.done)
	h.cancel()
}

// 只有这个协程写连接
func (h *Hub) handleResponse() {
	for {
		select {
		case reply := <-h.reply:
			h.write(reply)
		case s, ok := <-h.results:
			if !ok {
				return
			}
			data, err := json.Marshal(s)
			if err != nil {
				log.WithError(err).Error("encode snapshot")
				continue
			}
			h.write(model.Msg{Type: msgResult, Content: string(data)})
		case <-h.done:
			return
		}
	}
}

func (h *Hub) write(m model.Msg) {
	if err := h.conn.WriteJSON(&m); err != nil {
		log.WithFields(log.Fields{"type": m.Type, "remote": h.conn.RemoteAddr().String()}).WithError(err).Warn("websocket write")
	}
}

func (h *Hub) handleRequest() {
	for {
		select {
		case msg := <-h.msg:
			select {
			case h.reply <- h.dispatch(msg):
			case <-h.done:
				return
			}
		case <-h.done:
			return
		}
	}
}

func (h *Hub) dispatch(msg model.Msg) model.Msg {
	switch msg.Type {
	case msgStart:
		if err := h.sim.start(); err != nil {
			return model.Msg{Type: msgError, Content: err.Error()}
		}
		return model.Msg{Type: msgStarted}
	case msgStop:
		if err := h.sim.stop(); err != nil {
			return model.Msg{Type: msgError, Content: err.Error()}
		}
		return model.Msg{Type: msgStopped, Content: "stopped"}
	case msgReset:
		if err := h.sim.reset(); err != nil {
			return model.Msg{Type: msgError, Content: err.Error()}
		}
		return h.encode(msgStatus, h.sim.status())
	case msgQuantities:
		return h.encode(msgQuantities, h.sim.runner.Quantities())
	case msgStatus:
		return h.encode(msgStatus, h.sim.status())
	}
	log.WithField("type", msg.Type).Warn("no such type")
	return model.Msg{Type: msgError, Content: "no such type: " + msg.Type}
}

func (h *Hub) encode(typ string, v any) model.Msg {
	data, err := json.Marshal(v)
	if err != nil {
		return model.Msg{Type: msgError, Content: err.Error()}
	}
	return model.Msg{Type: typ, Content: string(data)}
}
