package server

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"github.com/park285/transfer-gateway/internal/httperror"
	"github.com/park285/transfer-gateway/internal/status"
)

const (
	readyCheckTimeout = 3 * time.Second
	wsWriteTimeout    = 5 * time.Second
	wsPingInterval    = 30 * time.Second
)

var wsUpgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true // 상태 정보는 공개 데이터
	},
}

// handleReady: 백엔드 온라인 여부와 등록된 의존성을 확인합니다. 하나라도 실패하면 503.
func (s *Server) handleReady(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), readyCheckTimeout)
	defer cancel()

	resp := ReadyResponse{Status: "ok", Checks: make(map[string]string, len(s.checks)+1)}
	if s.collector != nil {
		if s.collector.Tracker().Online() {
			resp.Checks["backend"] = "ok"
		} else {
			resp.Checks["backend"] = "offline"
			resp.Status = "degraded"
		}
	}
	for _, check := range s.checks {
		if err := check.Check(ctx); err != nil {
			resp.Checks[check.Name] = err.Error()
			resp.Status = "degraded"
			continue
		}
		resp.Checks[check.Name] = "ok"
	}

	code := http.StatusOK
	if resp.Status != "ok" {
		code = http.StatusServiceUnavailable
	}
	c.JSON(code, resp)
}

// handleBackendStatus: GET /api/backend-status → 백엔드 상태 + 게이트웨이 프로세스 통계
func (s *Server) handleBackendStatus(c *gin.Context) {
	c.Header("Cache-Control", "no-store")
	httperror.OK(c, http.StatusOK, s.collector.Report(c.Request.Context()))
}

// handleBackendStatusStream: 연결 즉시 현재 상태를 보내고, 이후 온라인/오프라인 전환마다 전송합니다.
func (s *Server) handleBackendStatusStream(c *gin.Context) {
	conn, err := wsUpgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		return
	}
	defer func() { _ = conn.Close() }()

	updates, unsubscribe := s.collector.Tracker().Subscribe()
	defer unsubscribe()

	ctx, cancel := context.WithCancel(c.Request.Context())
	defer cancel()

	// 클라이언트 종료 감지 (제어 프레임 처리를 위해 읽기 루프 필요)
	go func() {
		defer cancel()
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	if err := writeSnapshot(conn, s.collector.Tracker().Snapshot()); err != nil {
		return
	}

	ping := time.NewTicker(wsPingInterval)
	defer ping.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case snap, ok := <-updates:
			if !ok {
				return
			}
			if err := writeSnapshot(conn, snap); err != nil {
				s.logger.DebugContext(ctx, "backend_status_stream_closed", slog.Any("error", err))
				return
			}
		case <-ping.C:
			deadline := time.Now().Add(wsWriteTimeout)
			if err := conn.WriteControl(websocket.PingMessage, nil, deadline); err != nil {
				return
			}
		}
	}
}

func writeSnapshot(conn *websocket.Conn, snap status.Snapshot) error {
	_ = conn.SetWriteDeadline(time.Now().Add(wsWriteTimeout))
	return conn.WriteJSON(snap)
}
