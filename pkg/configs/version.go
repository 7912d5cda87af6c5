package configs

// AppName 服务名称，用于日志、追踪资源与 S3 客户端标识.
const AppName = "image-saas"

// AppVersion 服务版本，构建时可通过 -ldflags "-X" 覆盖.
var AppVersion = "0.1.0"
