package main

import (
	"log"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"sketchtex/internal/run"
)

const (
	watchWSWriteWait = 10 * time.Second
	watchWSPongWait  = 60 * time.Second
	watchWSPingEvery = (watchWSPongWait * 9) / 10
)

var watchWSUpgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(_ *http.Request) bool {
		return true
	},
}

// handleWatch upgrades to a websocket and streams the run's progress
// events until a terminal state or the channel closes.
func (s *apiServer) handleWatch(w http.ResponseWriter, r *http.Request, runID string) {
	eventCh, ok := s.session.Watch(runID)
	if !ok {
		http.Error(w, "run not found", http.StatusNotFound)
		return
	}

	conn, err := watchWSUpgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	defer conn.Close()

	if err := conn.SetReadDeadline(time.Now().Add(watchWSPongWait)); err != nil {
		return
	}
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(watchWSPongWait))
	})

	// Drain the read side so pong frames are processed and a closed
	// peer is noticed.
	readerDone := make(chan struct{})
	go func() {
		defer close(readerDone)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	ticker := time.NewTicker(watchWSPingEvery)
	defer ticker.Stop()

	for {
		select {
		case <-r.Context().Done():
			return
		case <-readerDone:
			return
		case ev, ok := <-eventCh:
			if !ok {
				// A completed run whose events were already drained still
				// has a terminal result; replay it so late watchers see the
				// outcome. Only a superseded run ends without one.
				if result, found := s.session.Result(runID); found {
					_ = writeWS(conn, run.Event{State: result.State, Detail: result.FailureCause})
				} else {
					_ = writeWS(conn, run.Event{State: stateClosed})
				}
				return
			}
			if err := writeWS(conn, ev); err != nil {
				log.Printf("watch %s: write failed: %v", runID, err)
				return
			}
			if ev.State.Terminal() {
				return
			}
		case <-ticker.C:
			if err := conn.SetWriteDeadline(time.Now().Add(watchWSWriteWait)); err != nil {
				return
			}
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// stateClosed marks the stream ending without a terminal event, which
// happens when a run is superseded by a newer one.
const stateClosed = run.State("closed")

func writeWS(conn *websocket.Conn, ev run.Event) error {
	if err := conn.SetWriteDeadline(time.Now().Add(watchWSWriteWait)); err != nil {
		return err
	}
	return conn.WriteJSON(ev)
}
