package config

// Environment Variable Keys
const (
	// EnvAppEnv 定義應用程式執行環境 (local, dev, prod)
	EnvAppEnv = "APP_ENV"

	// EnvPort 定義 HTTP/Websocket 服務 Port
	EnvPort = "PORT"

	// EnvGrpcPort 定義 gRPC Health 服務 Port
	EnvGrpcPort = "GRPC_PORT"

	// EnvConfigPath 定義設定檔路徑
	EnvConfigPath = "CONFIG_PATH"

	// EnvRedisAddr 定義 Redis 服務地址 (host:port)
	EnvRedisAddr = "REDIS_ADDR"

	// EnvRedisPassword 定義 Redis 密碼
	EnvRedisPassword = "REDIS_PASSWORD"

	// EnvSimSeed 定義模擬亂數種子
	EnvSimSeed = "SIM_SEED"

	// EnvSimChannel 定義直播頻道名稱 (Redis 頻道前綴)
	EnvSimChannel = "SIM_CHANNEL"
)
