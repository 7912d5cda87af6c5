package configs

// redactedMask 替换非空密钥.
const redactedMask = "******"

func mask(s *string) {
	if *s != "" {
		*s = redactedMask
	}
}

// Redacted 返回隐藏了密码与密钥的副本，用于打印或排查.
func (c AppConfig) Redacted() AppConfig {
	out := c

	mask(&out.DB.Password)
	mask(&out.DB.DSN)
	mask(&out.S3.SecretAccessKey)
	mask(&out.KV.Redis.Password)
	mask(&out.KV.NATS.Password)
	mask(&out.MQ.Common.Password)
	mask(&out.MQ.NATS.JWT)
	mask(&out.MQ.NATS.NKey)
	mask(&out.MQ.Redis.Password)
	mask(&out.Recognizer.Spark.APIKey)
	mask(&out.Recognizer.Spark.APISecret)

	return out
}
