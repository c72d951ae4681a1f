package ws

import (
	"context"
	"crypto/subtle"
	"net/http"

	"github.com/DoyleJ11/fate-bridge/internal/bridge"
	"github.com/coder/websocket"
	"go.uber.org/zap"
)

// peerConn adapts a websocket connection to the bridge's Conn interface.
type peerConn struct {
	conn *websocket.Conn
}

func (p *peerConn) Write(ctx context.Context, data []byte) error {
	return p.conn.Write(ctx, websocket.MessageText, data)
}

func (p *peerConn) Close() error {
	return p.conn.Close(websocket.StatusNormalClosure, "bye")
}

func (p *peerConn) CloseNow() error {
	return p.conn.CloseNow()
}

// Handler admits and upgrades the game client connection. Admission is a
// shared-secret check on the ?token= query parameter; an empty configured
// secret admits everyone (open mode).
func Handler(b *bridge.Bridge, secret string, log *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if secret != "" {
			token := r.URL.Query().Get("token")
			if subtle.ConstantTimeCompare([]byte(token), []byte(secret)) != 1 {
				log.Warn("rejected peer with bad token", zap.String("addr", r.RemoteAddr))
				http.Error(w, "unauthorized", http.StatusUnauthorized)
				return
			}
		}

		conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
			// The game client lives on the VTT's origin, not ours.
			InsecureSkipVerify: true,
		})
		if err != nil {
			log.Warn("websocket accept failed", zap.Error(err))
			return
		}

		pc := &peerConn{conn: conn}
		b.Attach(pc, r.RemoteAddr)
		defer b.Detach(pc)

		// Reader loop. Liveness is the bridge heartbeat's job, so reads wait
		// as long as the request context allows.
		for {
			_, data, err := conn.Read(r.Context())
			if err != nil {
				switch websocket.CloseStatus(err) {
				case websocket.StatusNormalClosure, websocket.StatusGoingAway:
					return
				}
				log.Debug("peer read ended", zap.String("addr", r.RemoteAddr), zap.Error(err))
				return
			}
			b.Inbound(pc, data)
		}
	}
}
