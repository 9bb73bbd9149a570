package bootstrap

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/keepalive"
	"google.golang.org/grpc/reflection"
)

// HealthServer gRPC 健康檢查服務 (供 K8s probe 使用)
type HealthServer struct {
	server *grpc.Server
	health *health.Server
	port   int
}

// NewHealthServer 建立 gRPC Server 並註冊 Health 與 Reflection
func NewHealthServer(port int) *HealthServer {
	grpcServer := grpc.NewServer(
		grpc.KeepaliveEnforcementPolicy(keepalive.EnforcementPolicy{
			MinTime:             5 * time.Second,
			PermitWithoutStream: true,
		}),
	)
	hs := health.NewServer()
	hs.SetServingStatus("", healthpb.HealthCheckResponse_NOT_SERVING)
	healthpb.RegisterHealthServer(grpcServer, hs)
	reflection.Register(grpcServer)

	return &HealthServer{server: grpcServer, health: hs, port: port}
}

// SetServing 切換整體服務狀態
func (h *HealthServer) SetServing(serving bool) {
	status := healthpb.HealthCheckResponse_NOT_SERVING
	if serving {
		status = healthpb.HealthCheckResponse_SERVING
	}
	h.health.SetServingStatus("", status)
}

// Serve 阻塞直到 Server 停止
func (h *HealthServer) Serve() error {
	lis, err := net.Listen("tcp", fmt.Sprintf(":%d", h.port))
	if err != nil {
		return fmt.Errorf("failed to listen: %w", err)
	}
	slog.Info("gRPC health listening", "port", h.port)
	return h.server.Serve(lis)
}

// Stop 標記為 NOT_SERVING 並優雅關閉
func (h *HealthServer) Stop() {
	h.health.Shutdown()
	h.server.GracefulStop()
}

// Check 直接查詢目前狀態 (測試與 HTTP /healthz 使用)
func (h *HealthServer) Check() healthpb.HealthCheckResponse_ServingStatus {
	resp, err := h.health.Check(context.Background(), &healthpb.HealthCheckRequest{})
	if err != nil {
		return healthpb.HealthCheckResponse_UNKNOWN
	}
	return resp.GetStatus()
}
