package handler

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"specforge/internal/enhancement"
	"specforge/internal/pipeline"
	"specforge/internal/util/jsonutil"
)

const (
	streamWriteWait = 10 * time.Second
	streamPongWait  = 60 * time.Second
	streamPingEvery = (streamPongWait * 9) / 10
)

var streamUpgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(_ *http.Request) bool {
		return true
	},
}

type streamInbound struct {
	Type      string          `json:"type"`
	RequestID string          `json:"requestId,omitempty"`
	Payload   json.RawMessage `json:"payload,omitempty"`
}

type streamOutbound struct {
	Type      string              `json:"type"`
	RequestID string              `json:"requestId,omitempty"`
	Stage     pipeline.Stage      `json:"stage,omitempty"`
	Detail    string              `json:"detail,omitempty"`
	Result    *enhancement.Result `json:"result,omitempty"`
	Code      string              `json:"code,omitempty"`
	Message   string              `json:"message,omitempty"`
}

// StreamHandler runs enhancements over a websocket and reports each stage
// before the final result.
type StreamHandler struct {
	enhancer *pipeline.Enhancer
	logger   *log.Logger
}

func NewStreamHandler(enhancer *pipeline.Enhancer, logger *log.Logger) *StreamHandler {
	if logger == nil {
		logger = log.Default()
	}
	return &StreamHandler{enhancer: enhancer, logger: logger}
}

// HandleEnhanceWS accepts {"type":"enhance","payload":{...}} messages. Each
// one runs concurrently and produces "stage" messages followed by one
// "result" message tagged with the same requestId.
func (h *StreamHandler) HandleEnhanceWS(w http.ResponseWriter, r *http.Request) {
	conn, err := streamUpgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	defer conn.Close()

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	if err := conn.SetReadDeadline(time.Now().Add(streamPongWait)); err != nil {
		h.logger.Printf("enhance ws set read deadline failed: %v", err)
		return
	}
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(streamPongWait))
	})

	writeCh := make(chan streamOutbound, 64)
	writerDone := make(chan struct{})
	go func() {
		defer close(writerDone)
		ticker := time.NewTicker(streamPingEvery)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case out := <-writeCh:
				if err := conn.SetWriteDeadline(time.Now().Add(streamWriteWait)); err != nil {
					return
				}
				if err := writeStream(conn, out); err != nil {
					return
				}
			case <-ticker.C:
				if err := conn.SetWriteDeadline(time.Now().Add(streamWriteWait)); err != nil {
					return
				}
				if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
					return
				}
			}
		}
	}()

	var running sync.WaitGroup
	defer func() {
		cancel()
		running.Wait()
		<-writerDone
	}()

	for {
		var in streamInbound
		if err := conn.ReadJSON(&in); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				h.logger.Printf("enhance ws read failed: %v", err)
			}
			return
		}
		if err := conn.SetReadDeadline(time.Now().Add(streamPongWait)); err != nil {
			return
		}

		switch msgType := strings.TrimSpace(in.Type); msgType {
		case "enhance":
			id := strings.TrimSpace(in.RequestID)
			if id == "" {
				id = uuid.NewString()
			}
			req := DecodeRequest(strings.NewReader(string(in.Payload)), h.logger)
			req.RequestID = id
			running.Add(1)
			go func() {
				defer running.Done()
				h.run(ctx, req, writeCh)
			}()
		case "ping":
			pushStream(writeCh, streamOutbound{Type: "pong"})
		default:
			pushStream(writeCh, streamOutbound{
				Type:    "error",
				Code:    "invalid_argument",
				Message: "unsupported type: " + msgType,
			})
		}
	}
}

func (h *StreamHandler) run(ctx context.Context, req pipeline.Request, writeCh chan streamOutbound) {
	obs := func(ev pipeline.Event) {
		sendStream(ctx, writeCh, streamOutbound{
			Type:      "stage",
			RequestID: ev.RequestID,
			Stage:     ev.Stage,
			Detail:    ev.Detail,
		})
	}
	res := h.enhancer.EnhanceWithObserver(ctx, req, obs)
	sendStream(ctx, writeCh, streamOutbound{Type: "result", RequestID: req.RequestID, Result: &res})
}

// writeStream frames out as one text message without HTML escaping.
func writeStream(conn *websocket.Conn, out streamOutbound) error {
	wc, err := conn.NextWriter(websocket.TextMessage)
	if err != nil {
		return err
	}
	if err := jsonutil.WriteNoEscape(wc, out); err != nil {
		_ = wc.Close()
		return err
	}
	return wc.Close()
}

// sendStream blocks until the writer takes out or the connection ends, so
// stage messages are never dropped.
func sendStream(ctx context.Context, writeCh chan streamOutbound, out streamOutbound) {
	select {
	case writeCh <- out:
	case <-ctx.Done():
	}
}

// pushStream never blocks; when the queue is full the oldest message is
// replaced.
func pushStream(writeCh chan streamOutbound, out streamOutbound) {
	if writeCh == nil {
		return
	}
	select {
	case writeCh <- out:
		return
	default:
	}
	select {
	case <-writeCh:
	default:
	}
	select {
	case writeCh <- out:
	default:
	}
}
