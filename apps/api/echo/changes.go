package echoapi

import (
	"context"

	"github.com/labstack/echo/v4"
	"golang.org/x/net/websocket"
)

// changes streams a {"collection": ...} notice over a websocket whenever a collection changes.
// Frames sent by the client are ignored; the stream ends when the client goes away.
func (s *Server) changes(ctx echo.Context) error {
	websocket.Handler(func(conn *websocket.Conn) {
		defer func() {
			_ = conn.Close()
		}()

		wctx, cancel := context.WithCancel(ctx.Request().Context())
		defer cancel()
		notices := s.deps.Store.Watch(wctx)

		go func() {
			defer cancel()
			var frame string
			for {
				if err := websocket.Message.Receive(conn, &frame); err != nil {
					return
				}
			}
		}()

		for notice := range notices {
			if err := websocket.JSON.Send(conn, notice); err != nil {
				return
			}
		}
	}).ServeHTTP(ctx.Response(), ctx.Request())
	return nil
}
